package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/auth"
	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/service"
)

// Services groups everything the HTTP and gRPC layers call into.
type Services struct {
	Auth     *service.AuthService
	Tokens   *auth.TokenIssuer
	Catalog  *service.CatalogService
	Coupons  *service.CouponService
	Ledger   *service.OrderLedger
	Checkout *service.CheckoutService
	Tracking *service.TrackingService
	Contact  *service.ContactService
	Settings *service.SettingsService
	Admin    *service.AdminService
	Users    *service.UserService
}

type HTTPHandler struct {
	auth     *service.AuthService
	tokens   *auth.TokenIssuer
	catalog  *service.CatalogService
	coupons  *service.CouponService
	ledger   *service.OrderLedger
	checkout *service.CheckoutService
	tracking *service.TrackingService
	contact  *service.ContactService
	settings *service.SettingsService
	admin    *service.AdminService
	users    *service.UserService
	log      logrus.FieldLogger
}

func NewHTTPHandler(s Services, log logrus.FieldLogger) *HTTPHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPHandler{
		auth:     s.Auth,
		tokens:   s.Tokens,
		catalog:  s.Catalog,
		coupons:  s.Coupons,
		ledger:   s.Ledger,
		checkout: s.Checkout,
		tracking: s.Tracking,
		contact:  s.Contact,
		settings: s.Settings,
		admin:    s.Admin,
		users:    s.Users,
		log:      log,
	}
}

// Router builds the gin engine with every route registered.
func (h *HTTPHandler) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", idempotencyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", h.HealthCheck)

	v1 := r.Group("/v1")
	v1.Use(h.authenticate())

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/signup", h.Signup)
		authRoutes.POST("/reset-password", h.ResetPassword)
		authRoutes.POST("/reset-password/confirm", h.ConfirmPasswordReset)
		authRoutes.POST("/logout", requireAuth(), h.Logout)
		authRoutes.GET("/me", requireAuth(), h.Me)
	}

	store := v1.Group("")
	store.Use(h.maintenanceGate())
	{
		store.GET("/products", h.ListProducts)
		store.GET("/products/:id", h.GetProduct)
		store.GET("/flavors", h.ListFlavors)
		store.POST("/checkout/quote", h.Quote)
		store.POST("/contact", h.SubmitContact)

		customer := store.Group("")
		customer.Use(requireAuth())
		customer.POST("/checkout/orders", h.PlaceOrder)
		customer.GET("/orders", h.ListOrders)
		customer.GET("/orders/track/:trackingId", h.TrackOrder)
	}

	admin := v1.Group("/admin")
	admin.Use(requireAuth(), requireBackOffice())
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/orders", h.AdminListOrders)
		admin.GET("/orders/:id", h.AdminGetOrder)
		admin.GET("/coupons", h.AdminListCoupons)
		admin.GET("/settings", h.AdminGetSettings)
		admin.GET("/users", h.AdminListUsers)

		write := admin.Group("")
		write.Use(requireMutation())
		write.PUT("/orders/:id/status", h.AdminUpdateStatus)
		write.POST("/orders/:id/notify", h.AdminSendUpdate)
		write.POST("/products", h.AdminAddProduct)
		write.PUT("/products/:id", h.AdminUpdateProduct)
		write.DELETE("/products/:id", h.AdminDeleteProduct)
		write.POST("/flavors", h.AdminAddFlavor)
		write.PUT("/flavors/:id", h.AdminUpdateFlavor)
		write.DELETE("/flavors/:id", h.AdminDeleteFlavor)
		write.POST("/coupons", h.AdminCreateCoupon)
		write.PUT("/coupons/:id", h.AdminUpdateCoupon)
		write.DELETE("/coupons/:id", h.AdminDeleteCoupon)
		write.PUT("/settings", h.AdminUpdateSettings)
		write.POST("/users", h.AdminCreateUser)
		write.PUT("/users/:email", h.AdminUpdateUser)
		write.DELETE("/users/:email", h.AdminDeactivateUser)
	}

	return r
}

func (h *HTTPHandler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type credentialsRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	Token        string              `json:"token"`
	Principal    domain.Principal    `json:"principal"`
	Capabilities domain.Capabilities `json:"capabilities"`
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	p, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issueSession(c, http.StatusOK, p)
}

func (h *HTTPHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	p, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issueSession(c, http.StatusCreated, p)
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), principal(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *HTTPHandler) Me(c *gin.Context) {
	p := principal(c)
	c.JSON(http.StatusOK, gin.H{"principal": p, "capabilities": p.Capabilities()})
}

func (h *HTTPHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email is required"})
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset email sent"})
}

func (h *HTTPHandler) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email, code and newPassword are required"})
		return
	}
	if err := h.auth.ConfirmPasswordReset(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *HTTPHandler) issueSession(c *gin.Context, status int, p domain.Principal) {
	token, err := h.tokens.Issue(p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, sessionResponse{Token: token, Principal: p, Capabilities: p.Capabilities()})
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *HTTPHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.ProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *HTTPHandler) ListFlavors(c *gin.Context) {
	flavors, err := h.catalog.Flavors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flavors)
}

type cartRequest struct {
	Items          domain.Cart           `json:"items"`
	ShippingMethod domain.ShippingMethod `json:"shippingMethod"`
	CouponCode     string                `json:"couponCode"`
}

type quoteResponse struct {
	Quote       domain.Quote   `json:"quote"`
	Coupon      *domain.Coupon `json:"coupon,omitempty"`
	CouponError string         `json:"couponError,omitempty"`
}

// session builds a checkout session from the posted cart. A coupon that
// fails to apply is reported through the session, not as an error.
func (h *HTTPHandler) session(c *gin.Context, req cartRequest) (*service.CheckoutSession, bool) {
	switch req.ShippingMethod {
	case "":
		req.ShippingMethod = domain.ShippingDelivery
	case domain.ShippingDelivery, domain.ShippingPickup:
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "shippingMethod must be delivery or pickup"})
		return nil, false
	}

	cs := h.checkout.NewSession(req.Items, req.ShippingMethod)
	if req.CouponCode != "" {
		if err := cs.ApplyCoupon(c.Request.Context(), req.CouponCode); err != nil {
			if status, _ := statusFor(err); status >= http.StatusInternalServerError {
				h.fail(c, err)
				return nil, false
			}
		}
	}
	return cs, true
}

func (h *HTTPHandler) Quote(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := req.Items.Validate(); err != nil {
		h.fail(c, err)
		return
	}

	cs, ok := h.session(c, req)
	if !ok {
		return
	}
	resp := quoteResponse{Quote: cs.Quote(), Coupon: cs.Coupon()}
	if err := cs.Err(); err != nil {
		resp.CouponError = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

const idempotencyHeader = "Idempotency-Key"

type placeOrderRequest struct {
	cartRequest
	Billing       service.BillingDetails `json:"billing"`
	PaymentMethod domain.PaymentMethod   `json:"paymentMethod"`
	AcceptTerms   bool                   `json:"acceptTerms"`
}

func (h *HTTPHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	cs, ok := h.session(c, req.cartRequest)
	if !ok {
		return
	}
	if err := cs.Err(); err != nil {
		h.fail(c, err)
		return
	}

	order, err := h.checkout.PlaceOrder(c.Request.Context(), principal(c).Email, cs, service.PlaceOrderRequest{
		Billing:        req.Billing,
		PaymentMethod:  req.PaymentMethod,
		AcceptTerms:    req.AcceptTerms,
		IdempotencyKey: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	scope := principal(c).Email

	orders, err := h.ledger.Orders(ctx, scope)
	if err != nil {
		h.fail(c, err)
		return
	}
	ordered, err := h.ledger.HasEverOrdered(ctx, scope)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "hasEverOrdered": ordered})
}

func (h *HTTPHandler) TrackOrder(c *gin.Context) {
	view, err := h.tracking.Track(c.Request.Context(), principal(c).Email, c.Param("trackingId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) SubmitContact(c *gin.Context) {
	var form service.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.contact.Submit(c.Request.Context(), form); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message sent"})
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, errorResponse{Error: msg})
}
