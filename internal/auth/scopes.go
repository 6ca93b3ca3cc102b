package auth

// OAuth scopes understood by the service.
const (
	ScopeActivitiesWrite = "activities:write"
	ScopeActivitiesRead  = "activities:read"
	ScopeSuggestionsRead = "suggestions:read"
)
