// internal/clients/membership_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clubroll/internal/membership"

	"github.com/google/uuid"
)

// MembershipClient calls the membership service. It satisfies the
// attendance context's MemberDirectory.
type MembershipClient struct {
	baseClient
}

func NewMembershipClient(baseURL, token string) *MembershipClient {
	return &MembershipClient{baseClient: newBaseClient("membership", baseURL, token)}
}

// GetMember fetches the member snapshot and rebuilds the aggregate from it.
func (c *MembershipClient) GetMember(ctx context.Context, id uuid.UUID) (*membership.Member, error) {
	var state membership.MemberState
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/members/%s", id), nil, &state)
	if err != nil {
		return nil, err
	}
	return membership.FromState(state), nil
}

func (c *MembershipClient) RecordPayment(ctx context.Context, memberID uuid.UUID, courseID *uuid.UUID, at time.Time) (*membership.Payment, error) {
	body := struct {
		CourseID *uuid.UUID `json:"course_id,omitempty"`
		At       time.Time  `json:"at"`
	}{CourseID: courseID, At: at}

	var payment membership.Payment
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/members/%s/payments", memberID), body, &payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *MembershipClient) MarkPaymentUsed(ctx context.Context, memberID, paymentID uuid.UUID) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/members/%s/payments/%s/use", memberID, paymentID), nil, nil)
}

func (c *MembershipClient) MarkPaymentUnused(ctx context.Context, memberID, paymentID uuid.UUID) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/members/%s/payments/%s/restore", memberID, paymentID), nil, nil)
}
