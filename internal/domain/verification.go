package domain

// CodeKind is the purpose a verification code was requested for.
type CodeKind string

const (
	CodeKindRegister CodeKind = "register"
	CodeKindReset    CodeKind = "reset"
)

// Valid reports whether k is a known kind.
func (k CodeKind) Valid() bool {
	return k == CodeKindRegister || k == CodeKindReset
}
