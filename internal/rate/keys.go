package rate

// LoginAccountKey returns the per-account login key. email must already be
// normalized.
func LoginAccountKey(email string) string {
	return "login:id:" + email
}

// LoginIPKey returns the per-IP login key.
func LoginIPKey(ip string) string {
	return "login:ip:" + ip
}

func RegisterAccountKey(email string) string {
	return "register:id:" + email
}

func RegisterIPKey(ip string) string {
	return "register:ip:" + ip
}
