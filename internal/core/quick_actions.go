package core

// Quick actions are named seed prompts that flow through the normal reply
// path as if the user had typed them.
var quickActions = map[string]string{
	"breathing":       "Guide me through a simple 3-minute breathing exercise in your usual style.",
	"racing-thoughts": "My thoughts are racing. Walk me through facing, accepting, floating, and letting time pass.",
	"body-scan":       "Guide me through a slow body scan to release tension in your usual style.",
}

// QuickActionText returns the seed text for a named quick action.
func QuickActionText(action string) (string, bool) {
	text, ok := quickActions[action]
	return text, ok
}
