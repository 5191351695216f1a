package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"activity:view",
		"attempt:start",
		"attempt:submit",
		"attempt:view-own",
	},
	"teacher": {
		"activity:create",
		"activity:publish",
		"activity:view",
		"activity:view-draft",
		"attempt:view-all",
		"attempt:grade",
	},
	"admin": {
		"*", // everything
	},
}
