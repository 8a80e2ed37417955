package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/semanticallynull/campusbike/rental"
	"github.com/semanticallynull/campusbike/session"
)

// History returns the signed-in user's rentals, most recent first within each part.
func (s *Service) History(ctx context.Context, sess *session.Session) (rental.History, error) {
	user := sess.CurrentUser()
	if user == nil {
		return rental.History{}, ErrAuthRequired
	}

	var rentals []rental.Rental
	err := s.call(ctx, "rental.list", func(ctx context.Context) error {
		var err error
		rentals, err = s.rentals.ListByUser(ctx, user.UID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list rentals", "user", user.UID, "error", err)
		return rental.Partition(nil), &StorageError{Err: err}
	}

	return rental.Partition(rentals), nil
}

// Complete ends one of the signed-in user's active rentals.
func (s *Service) Complete(ctx context.Context, sess *session.Session, id uuid.UUID) (rental.Rental, error) {
	return s.transition(ctx, sess, "rental.complete", id, s.rentals.Complete)
}

// Cancel cancels one of the signed-in user's active rentals.
func (s *Service) Cancel(ctx context.Context, sess *session.Session, id uuid.UUID) (rental.Rental, error) {
	return s.transition(ctx, sess, "rental.cancel", id, s.rentals.Cancel)
}

func (s *Service) transition(
	ctx context.Context,
	sess *session.Session,
	name string,
	id uuid.UUID,
	fn func(context.Context, uuid.UUID, string) (rental.Rental, error),
) (rental.Rental, error) {
	user := sess.CurrentUser()
	if user == nil {
		return rental.Rental{}, ErrAuthRequired
	}

	var rt rental.Rental
	err := s.call(ctx, name, func(ctx context.Context) error {
		var err error
		rt, err = fn(ctx, id, user.UID)
		return err
	})
	return rt, err
}
