package models

// SagaState of a provisioning attempt
type SagaState string

const (
	SagaPending     SagaState = "PENDING"
	SagaCompleted   SagaState = "COMPLETED"
	SagaCompensated SagaState = "COMPENSATED"
)

// ProvisioningSaga records an account creation that spans the identity provider and
// the database. A saga left PENDING is picked up by the reconciler.
type ProvisioningSaga struct {
	ID        string    `json:"id" db:"id"`
	AuthUID   string    `json:"authUid" db:"auth_uid"`
	Email     string    `json:"email" db:"email"`
	Role      RoleType  `json:"role" db:"role"`
	State     SagaState `json:"state" db:"state"`
	Attempts  int       `json:"attempts" db:"attempts"`
	LastError string    `json:"lastError,omitempty" db:"last_error"`
	Timestamps
}
