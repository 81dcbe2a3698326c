package authz

const (
	RoleOwner     = "owner"
	RoleManager   = "manager"
	RoleStaff     = "staff"
	RoleAnonymous = "anonymous"
)

const (
	ActionRead    = "read"
	ActionExecute = "execute"
	ActionAdmin   = "admin"
)

const (
	ObjectResource      = "resource"
	ObjectResourceStats = "resource.stats"
	ObjectPrivateStats  = "resource.stats.private"
	ObjectExplain       = "resource.explain"
	ObjectAction        = "resource.action"
	ObjectEntity        = "entity"
)
