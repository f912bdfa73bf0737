package domain

// FunnelRole is the part of the funnel a campaign serves.
type FunnelRole string

const (
	RoleAwareness     FunnelRole = "awareness"
	RoleConsideration FunnelRole = "consideration"
	RoleConversion    FunnelRole = "conversion"
	RoleRetention     FunnelRole = "retention"
	RoleMixed         FunnelRole = "mixed"
)
