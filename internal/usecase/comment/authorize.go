package comment

import "github.com/Guyuepp/go-comment-service/domain"

// AuthorizeDelete allows the caller to delete c only when the normalized
// addresses match. There is no admin override.
func AuthorizeDelete(caller domain.Identity, c *domain.Comment) error {
	if c == nil {
		return domain.ErrNotFound
	}
	callerAddr := domain.NormalizeAddress(caller.OwnerAddress)
	if callerAddr == "" || callerAddr != domain.NormalizeAddress(c.OwnerAddress) {
		return domain.ErrForbidden
	}
	return nil
}
