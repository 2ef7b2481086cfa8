package domain

// Employee is one directory row: a person tied to a single agreement code.
// The directory may return the same person more than once under different
// codes; the pipeline deliberately does not collapse those rows.
type Employee struct {
	Email         string
	Name          string
	AgreementCode string
}

// Digest is the per-recipient message context: the posts relevant to one
// employee's agreement code. Built fresh during fan-out, never persisted.
type Digest struct {
	Name          string
	AgreementCode string
	Posts         []DigestPost
}

// DigestPost is a single entry in a digest.
type DigestPost struct {
	ID    string
	Title string
}
