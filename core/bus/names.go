package bus

// Event names are free-form strings; these are the application-level
// names used by convention. State lifecycle names live in the store
// package next to the code that publishes them.
const (
	EventInitComplete  = "init:complete"
	EventUIReady       = "ui:ready"
	EventUIInteraction = "ui:interaction"
	EventError         = "error"
	EventCleanup       = "cleanup"
)
