package apple_iap

import "fmt"

const StatusOK = 0

var statusMessages = map[int]string{
	21000: "The App Store could not read the JSON object you provided.",
	21002: "The data in the receipt-data property was malformed or missing.",
	21003: "The receipt could not be authenticated.",
	21004: "The shared secret you provided does not match the shared secret on file.",
	21005: "The receipt server is not currently available.",
	21006: "This receipt is valid but the subscription has expired.",
	21007: "This receipt is from the sandbox environment, but it was sent to the production environment.",
	21008: "This receipt is from the production environment, but it was sent to the sandbox environment.",
	21009: "Internal data access error.",
	21010: "This receipt could not be authorized.",
}

// StatusMessage describes a verifyReceipt status code.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown receipt validation error: %d", status)
}
