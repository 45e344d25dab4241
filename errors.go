package polycache

import "fmt"

// InvalidKeyError reports a caller key rejected by the facade's validation:
// empty, or containing one of the reserved characters {}()/\@: which some
// backends assign protocol meaning.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("polycache: invalid key %q: %s", e.Key, e.Reason)
}
