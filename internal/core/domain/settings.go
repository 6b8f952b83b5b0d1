package domain

// Settings is the back-office configuration blob. Payments.TaxRate is a
// display percentage; checkout prices with the configured calculator rate.
type Settings struct {
	General       GeneralSettings      `json:"general" mapstructure:"general"`
	Payments      PaymentSettings      `json:"payments" mapstructure:"payments"`
	Email         EmailSettings        `json:"email" mapstructure:"email"`
	Notifications NotificationSettings `json:"notifications" mapstructure:"notifications"`
}

type GeneralSettings struct {
	SiteName        string `json:"siteName" mapstructure:"site_name"`
	Logo            string `json:"logo" mapstructure:"logo"`
	Favicon         string `json:"favicon" mapstructure:"favicon"`
	Theme           string `json:"theme" mapstructure:"theme"`
	Language        string `json:"language" mapstructure:"language"`
	Timezone        string `json:"timezone" mapstructure:"timezone"`
	MaintenanceMode bool   `json:"maintenanceMode" mapstructure:"maintenance_mode"`
	WelcomeMessage  string `json:"welcomeMessage" mapstructure:"welcome_message"`
}

type PaymentSettings struct {
	Providers     map[string]bool `json:"providers" mapstructure:"providers"`
	Currency      string          `json:"currency" mapstructure:"currency"`
	EnableCoupons bool            `json:"enableCoupons" mapstructure:"enable_coupons"`
	TaxRate       float64         `json:"taxRate" mapstructure:"tax_rate"`
	RefundPolicy  string          `json:"refundPolicy" mapstructure:"refund_policy"`
}

type EmailSettings struct {
	SenderName  string `json:"senderName" mapstructure:"sender_name"`
	SenderEmail string `json:"senderEmail" mapstructure:"sender_email"`
}

type NotificationSettings struct {
	SystemNotifications bool `json:"systemNotifications" mapstructure:"system_notifications"`
	EmailNotifications  bool `json:"emailNotifications" mapstructure:"email_notifications"`
	UserSignupAlert     bool `json:"userSignupAlert" mapstructure:"user_signup_alert"`
	OrderPlacedAlert    bool `json:"orderPlacedAlert" mapstructure:"order_placed_alert"`
}

func DefaultSettings() Settings {
	return Settings{
		General: GeneralSettings{
			SiteName:       "Catrink Energy Drinks",
			Logo:           "/logo.png",
			Favicon:        "/favicon.ico",
			Theme:          "dark",
			Language:       "en",
			Timezone:       "America/New_York",
			WelcomeMessage: "Awaken the Cat reflex Inside you",
		},
		Payments: PaymentSettings{
			Providers: map[string]bool{
				string(PaymentStripe):   true,
				string(PaymentRazorpay): false,
				string(PaymentPayPal):   false,
			},
			Currency:      "USD",
			EnableCoupons: true,
			TaxRate:       8.5,
			RefundPolicy:  "30-day refund policy",
		},
		Email: EmailSettings{
			SenderName:  "Catrink Support",
			SenderEmail: "support@catrink.com",
		},
		Notifications: NotificationSettings{
			SystemNotifications: true,
			EmailNotifications:  true,
			UserSignupAlert:     true,
			OrderPlacedAlert:    true,
		},
	}
}
