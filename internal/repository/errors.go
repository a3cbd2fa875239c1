// Package repository implements the inventory store on MySQL.  Lookups that
// find nothing return the model sentinels (model.ErrRoomTypeNotFound,
// model.ErrBookingNotFound) so that the service layer can branch on them
// without importing this package.  Errors specific to persistence live here.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateReference is returned when a payment-session reference is
// already stored on another booking.  The column is UNIQUE.
var ErrDuplicateReference = errors.New("duplicate payment session reference")

// mysqlDuplicateEntry is the server error number for a UNIQUE violation.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// sqlDateTime is the DATETIME layout used for bound parameters.
const sqlDateTime = "2006-01-02 15:04:05"
