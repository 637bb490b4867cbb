package rbac

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// Permissions
const (
	PermQuestionImport = "question:import"
	PermQuestionEdit   = "question:edit"
	PermQuizCreate     = "quiz:create"
	PermQuizView       = "quiz:view"
	PermAttemptTake    = "attempt:take"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermEventsRead     = "events:read"
)

var RolePermissions = map[string][]string{
	RoleStudent: {
		PermQuizView,
		PermAttemptTake,
		PermAttemptViewOwn,
	},
	RoleInstructor: {
		"question:*",
		"quiz:*",
		PermAttemptViewAll,
		PermEventsRead,
	},
}
