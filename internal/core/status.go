package core

// Family selects the status table an endpoint reports failures with. The same
// number means different things on different endpoints.
type Family int

const (
	// FamilyLogin covers POST /login.
	FamilyLogin Family = iota
	// FamilyRegister covers POST /register.
	FamilyRegister
	// FamilyResource covers authenticated reads and channel creation.
	FamilyResource
	// FamilyMessageSend covers POST /messages/:channelId.
	FamilyMessageSend
)

var statusTables = map[Family]map[int]Kind{
	FamilyLogin: {
		1: KindRequestError,
		2: KindInvalidCredentials,
	},
	FamilyRegister: {
		1: KindRequestError,
		2: KindUserAlreadyExists,
	},
	FamilyResource: {
		1: KindNeedsAuthentication,
		2: KindRequestError,
	},
	FamilyMessageSend: {
		1: KindNeedsAuthentication,
		2: KindRequestError,
		3: KindCreationError,
	},
}

// KindOf maps a numeric status to its meaning. Unknown statuses are request
// errors.
func KindOf(f Family, status int) Kind {
	if k, ok := statusTables[f][status]; ok {
		return k
	}
	return KindRequestError
}

// StatusOf is the inverse of KindOf. A kind the family does not use maps to
// the family's request error status.
func StatusOf(f Family, k Kind) int {
	for status, kind := range statusTables[f] {
		if kind == k {
			return status
		}
	}
	if k != KindRequestError {
		return StatusOf(f, KindRequestError)
	}
	return 0
}

// NewFailure builds a Failure from a status reported by the server.
func NewFailure(op string, f Family, status int, message string) *Failure {
	return &Failure{
		Op:      op,
		Status:  status,
		Kind:    KindOf(f, status),
		Message: message,
	}
}

// RequestFailure folds a transport or decoding error into the family's
// generic failure branch.
func RequestFailure(op string, f Family, err error) *Failure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Failure{
		Op:      op,
		Status:  StatusOf(f, KindRequestError),
		Kind:    KindRequestError,
		Message: msg,
	}
}
