package rediskey

import "fmt"

// Session keys (global convention across services)
const (
	SessionPrefix = "session"
	AccountPrefix = "account"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSessionKey returns "session:{token}"
func BuildSessionKey(token string) string {
	return NamespaceKey(SessionPrefix, token)
}

// BuildAccountKey returns "account:{accountID}"
func BuildAccountKey(accountID string) string {
	return NamespaceKey(AccountPrefix, accountID)
}
