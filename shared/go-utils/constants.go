package utils

const (
	OrganizationName                      = "Gymmawy"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"

	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	TestEmailSuffix = "testing@gymmawy.dev"
)
