package cart

import "context"

// Store persists sessions. Load returns an empty session for users without a
// cart, with Voucher left nil. Save must reject sessions whose items span more
// than one outlet with ErrOutletMismatch. Carts are removed by checkout.
type Store interface {
	Load(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}
