package coursehttp

// Bucket names used by coursekit endpoints.
const (
	RLLogin           = "course_login"
	RLLogout          = "course_logout"
	RLMagicLinkReq    = "course_magic_link_request"
	RLMagicLinkRedeem = "course_magic_link_redeem"

	RLPasswordResetRequest = "course_pwd_reset_request"
	RLPasswordResetConfirm = "course_pwd_reset_confirm"
	RLUserPasswordChange   = "course_user_password_change"

	RLUserMe      = "course_user_me"
	RLUserCourses = "course_user_courses"

	RLCheckout        = "course_checkout"
	RLPaymentsConfirm = "course_payments_confirm"

	RLAdminLogin = "course_admin_login"
	RLAdminOps   = "course_admin_ops"
)
