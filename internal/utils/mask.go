package utils

import "strings"

// MaskConversationID masks the middle of a conversation identifier so logs
// never carry a full phone number. "5511999887766@c.us" becomes
// "551***766@c.us"; identifiers of six characters or fewer are fully masked.
//
// Example:
//
//	s := utils.MaskConversationID("5511999887766@c.us") // "551***766@c.us"
//	s = utils.MaskConversationID("12345")               // "***"
func MaskConversationID(id string) string {
	local := id
	suffix := ""
	if at := strings.IndexByte(id, '@'); at >= 0 {
		local, suffix = id[:at], id[at:]
	}
	if len(local) <= 6 {
		return "***" + suffix
	}
	return local[:3] + "***" + local[len(local)-3:] + suffix
}
