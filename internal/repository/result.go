package repository

import (
	"database/sql"
	stderrors "errors"
)

var errNoRowsAffected = stderrors.New("no rows affected")

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errNoRowsAffected
	}
	return nil
}
