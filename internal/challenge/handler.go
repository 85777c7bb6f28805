package challenge

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/holdergate/holdergate/internal/rule"
	"github.com/holdergate/holdergate/internal/synchronizer"
	"github.com/holdergate/holdergate/internal/user"
)

// Handler exposes the sign-in HTTP endpoints.
type Handler struct {
	service *Service
	users   user.Repository
	sync    *synchronizer.Synchronizer
	logger  *slog.Logger
}

// NewHandler builds the sign-in HTTP handler.
func NewHandler(service *Service, users user.Repository, sync *synchronizer.Synchronizer, logger *slog.Logger) *Handler {
	return &Handler{service: service, users: users, sync: sync, logger: logger}
}

type issueRequest struct {
	UserID string `json:"user_id" form:"user_id"`
}

type issueResponse struct {
	RequestID string    `json:"request_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type signinRequest struct {
	Domain    string `json:"domain" form:"domain"`
	Address   string `json:"address" form:"address"`
	ChainID   string `json:"chainId" form:"chainId"`
	URI       string `json:"uri" form:"uri"`
	Version   string `json:"version" form:"version"`
	Statement string `json:"statement" form:"statement"`
	Type      string `json:"type" form:"type"`
	Nonce     string `json:"nonce" form:"nonce"`
	Signature string `json:"signature" form:"signature"`
}

type tierStatus struct {
	Role      string `json:"role"`
	RoleID    string `json:"roleId"`
	Qualified bool   `json:"qualified"`
	RoleAvail bool   `json:"roleAvailable"`
}

type signinResponse struct {
	Address string       `json:"address"`
	Status  []tierStatus `json:"status"`
}

type rejection struct {
	Text string `json:"text"`
}

// Issue creates a challenge for a directory user. Called by the bot when
// it hands out a sign-in link, so it sits behind the admin token.
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id is required")
	}

	ch, err := h.service.Issue(c.UserContext(), req.UserID)
	if err != nil {
		h.logger.Error("issue challenge", "user", req.UserID, "error", err)
		return fiber.NewError(http.StatusInternalServerError, "could not issue challenge")
	}

	return c.Status(http.StatusCreated).JSON(issueResponse{
		RequestID: ch.RequestID,
		ExpiresAt: ch.IssuedAt.Add(h.service.TTL()),
	})
}

// SignIn verifies a signed challenge, links the wallet, runs the
// qualification pipeline for the user and reports the per-tier outcomes.
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req signinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Nonce == "" {
		// The sign-in page carries the request id as a query parameter;
		// older clients submit it there instead of in the body.
		req.Nonce = c.Query("requestId")
	}

	verified, err := h.service.Verify(c.UserContext(), Submission{
		Domain:    req.Domain,
		Address:   req.Address,
		ChainID:   req.ChainID,
		URI:       req.URI,
		Version:   req.Version,
		Statement: req.Statement,
		Type:      req.Type,
		Nonce:     req.Nonce,
		Signature: req.Signature,
	})
	if err != nil {
		if isIdentityError(err) {
			return c.Status(http.StatusUnprocessableEntity).JSON(rejection{Text: err.Error()})
		}
		h.logger.Error("sign-in verification failed", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "verification failed")
	}

	u, err := h.users.LinkWallet(c.UserContext(), verified.DirectoryUserID, verified.WalletAddress)
	if err != nil {
		h.logger.Error("link wallet", "user", verified.DirectoryUserID, "error", err)
		return fiber.NewError(http.StatusInternalServerError, "could not link wallet")
	}

	outcomes, err := h.sync.ExecuteUser(c.UserContext(), u)
	if err != nil && len(outcomes) == 0 {
		h.logger.Error("post-verification synchronization failed", "user", u.DirectoryID, "error", err)
		return fiber.NewError(http.StatusInternalServerError, "could not verify holdings")
	}
	if err != nil {
		h.logger.Warn("post-verification synchronization partially failed", "user", u.DirectoryID, "error", err)
	}

	return c.Status(http.StatusOK).JSON(signinResponse{
		Address: ChecksumAddress(u.WalletAddress),
		Status:  toStatus(outcomes),
	})
}

func toStatus(outcomes []rule.Outcome) []tierStatus {
	status := make([]tierStatus, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		status = append(status, tierStatus{
			Role:      o.TierName,
			RoleID:    o.RoleID,
			Qualified: o.Qualified,
			RoleAvail: o.RoleAvail,
		})
	}
	return status
}

func isIdentityError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrAlreadyUsed) ||
		errors.Is(err, ErrMessageMismatch) ||
		errors.Is(err, ErrInvalidSignature)
}
