package types

// RegisterRequest advertises one transaction family to the host.
type RegisterRequest struct {
	FamilyName string   `cramberry:"1"`
	Versions   []string `cramberry:"2"`
	Namespaces []string `cramberry:"3"`
}

// RegisterStatus is the host's answer to a registration.
type RegisterStatus uint8

const (
	RegisterOK    RegisterStatus = 1
	RegisterError RegisterStatus = 2
)

// RegisterResponse acknowledges a processor's registrations.
type RegisterResponse struct {
	Status RegisterStatus `cramberry:"1"`
	// Reason for a failed registration.
	Info string `cramberry:"2"`
}
