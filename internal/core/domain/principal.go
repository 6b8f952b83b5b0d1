package domain

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleCustomer  Role = "customer"
	RoleDemoAdmin Role = "demo-admin"
	RoleAdmin     Role = "admin"
)

// Capabilities are resolved once per principal and passed downstream in
// place of role checks.
type Capabilities struct {
	CanViewBackOffice bool `json:"canViewBackOffice"`
	// CanMutateCatalog gates every back-office write: catalog, coupons,
	// settings and order status.
	CanMutateCatalog bool `json:"canMutateCatalog"`
}

type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

var Anonymous = Principal{Role: RoleAnonymous}

func (p Principal) Authenticated() bool {
	return p.Role != RoleAnonymous && p.Role != ""
}

func (p Principal) Capabilities() Capabilities {
	switch p.Role {
	case RoleAdmin:
		return Capabilities{CanViewBackOffice: true, CanMutateCatalog: true}
	case RoleDemoAdmin:
		return Capabilities{CanViewBackOffice: true}
	}
	return Capabilities{}
}

// SessionRecord is what gets persisted for a signed-in identity.
type SessionRecord struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
	IsSubAdmin  bool   `json:"isSubAdmin"`
}

func (p Principal) Session() SessionRecord {
	return SessionRecord{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		IsAdmin:     p.Role == RoleAdmin || p.Role == RoleDemoAdmin,
		IsSubAdmin:  p.Role == RoleDemoAdmin,
	}
}

func (s SessionRecord) Principal() Principal {
	role := RoleCustomer
	switch {
	case s.IsAdmin && s.IsSubAdmin:
		role = RoleDemoAdmin
	case s.IsAdmin:
		role = RoleAdmin
	}
	return Principal{UID: s.UID, Email: s.Email, DisplayName: s.DisplayName, Role: role}
}
