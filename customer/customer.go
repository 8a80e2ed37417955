// Package customer links signed-in users to their payment provider customer record.
package customer

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID      `db:"id"`
	Auth0ID   string         `db:"auth0_id"`
	StripeID  sql.NullString `db:"stripe_id"`
	Email     sql.NullString `db:"email"`
	CreatedAt time.Time      `db:"created_at"`
}
