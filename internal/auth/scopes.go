package auth

// Known OAuth scopes used by the snapshot API.
const (
	ScopeSnapshotRead = "snapshot:read"
)
