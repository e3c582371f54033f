package errortypes

// ErrFilePos extends the error interface to add details on the file position where the error occurred.
type ErrFilePos interface {
	error
	File() string
	Line() int
	Col() int
}

// IsErrFilePos identifies whether or not the root cause of the provided error is of the ErrFilePos type.
// Wrapped errors are unwrapped via the Cause() function.
func IsErrFilePos(err error) bool {
	return ToErrFilePos(err) != nil
}

// ToErrFilePos converts the input error to an ErrFilePos if possible, or nil if not.
// If IsErrFilePos returns true, this will not return nil.
// The outermost error in the Cause() chain that carries a position is returned.
func ToErrFilePos(err error) ErrFilePos {
	type causer interface {
		Cause() error
	}
	for err != nil {
		if out, ok := err.(ErrFilePos); ok {
			return out
		}
		e, ok := err.(causer)
		if !ok {
			return nil
		}
		err = e.Cause()
	}
	return nil
}
