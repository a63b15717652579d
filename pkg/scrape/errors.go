package scrape

import "fmt"

// AcquisitionError reports a failure to turn a raw source into plain text.
// It covers fetch failures, JS-render failures and an extraction cascade
// whose terminal strategy produced empty text.
type AcquisitionError struct {
	URL   string
	Stage string
	Err   error
}

func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("acquisition failed at %s for %s", e.Stage, e.URL)
	}
	return fmt.Sprintf("acquisition failed at %s for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
