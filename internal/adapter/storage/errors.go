package storage

import stderrors "errors"

func joinErrors(errs []error) error {
	return stderrors.Join(errs...)
}
