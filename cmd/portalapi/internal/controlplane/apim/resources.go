package apim

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/validate"
)

type collection[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"nextLink,omitempty"`
}

type userContract struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Properties userProperties `json:"properties"`
}

type userProperties struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	State        string `json:"state,omitempty"`
	Note         string `json:"note,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
}

type groupContract struct {
	Name       string `json:"name"`
	Properties struct {
		DisplayName string `json:"displayName"`
	} `json:"properties"`
}

type subscriptionContract struct {
	Name       string                 `json:"name,omitempty"`
	Properties subscriptionProperties `json:"properties"`
}

type subscriptionProperties struct {
	OwnerID      string     `json:"ownerId"`
	Scope        string     `json:"scope"`
	DisplayName  string     `json:"displayName"`
	State        string     `json:"state"`
	PrimaryKey   string     `json:"primaryKey,omitempty"`
	SecondaryKey string     `json:"secondaryKey,omitempty"`
	CreatedDate  *time.Time `json:"createdDate,omitempty"`
}

type productContract struct {
	Name       string `json:"name"`
	Properties struct {
		DisplayName string `json:"displayName"`
	} `json:"properties"`
}

func (u userContract) toAccount() controlplane.Account {
	id := u.Name
	if id == "" {
		id = lastSegment(u.ID)
	}
	return controlplane.Account{
		ID:        id,
		FirstName: u.Properties.FirstName,
		LastName:  u.Properties.LastName,
		Email:     u.Properties.Email,
		State:     u.Properties.State,
	}
}

func (s subscriptionContract) toSubscription() controlplane.Subscription {
	id := s.Name
	if id == "" {
		id = s.Properties.DisplayName
	}
	sub := controlplane.Subscription{
		ID:           id,
		OwnerID:      lastSegment(s.Properties.OwnerID),
		ProductID:    lastSegment(s.Properties.Scope),
		PrimaryKey:   s.Properties.PrimaryKey,
		SecondaryKey: s.Properties.SecondaryKey,
		State:        controlplane.SubscriptionState(s.Properties.State),
	}
	if s.Properties.CreatedDate != nil {
		sub.CreatedAt = *s.Properties.CreatedDate
	}
	return sub
}

// ListAccountsByEmail implements controlplane.Client.
func (c *Client) ListAccountsByEmail(ctx context.Context, email string) ([]controlplane.Account, error) {
	users, err := list[userContract](ctx, c, "/users", url.Values{"$filter": {"email eq " + odataQuote(email)}})
	if err != nil {
		return nil, fmt.Errorf("list accounts by email: %w", err)
	}
	accounts := make([]controlplane.Account, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, u.toAccount())
	}
	return accounts, nil
}

// CreateAccount implements controlplane.Client.
func (c *Client) CreateAccount(ctx context.Context, spec controlplane.AccountSpec) (*controlplane.Account, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid account spec: %w", err)
	}

	body := userContract{Properties: userProperties{
		FirstName:    spec.FirstName,
		LastName:     spec.LastName,
		Email:        spec.Email,
		State:        "active",
		Note:         spec.Note,
		Confirmation: "signup",
	}}

	var u userContract
	if err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(spec.ID), nil, body, &u); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account := u.toAccount()
	if account.ID == "" {
		account.ID = spec.ID
	}
	return &account, nil
}

// ListAccountGroups implements controlplane.Client.
func (c *Client) ListAccountGroups(ctx context.Context, accountID string) ([]string, error) {
	groups, err := list[groupContract](ctx, c, "/users/"+url.PathEscape(accountID)+"/groups", nil)
	if err != nil {
		return nil, fmt.Errorf("list account groups: %w", err)
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names, nil
}

// AddAccountToGroup implements controlplane.Client.
func (c *Client) AddAccountToGroup(ctx context.Context, accountID, group string) error {
	p := "/groups/" + url.PathEscape(group) + "/users/" + url.PathEscape(accountID)
	if err := c.do(ctx, http.MethodPut, p, nil, nil, nil); err != nil {
		return fmt.Errorf("add account to group %s: %w", group, err)
	}
	return nil
}

// GetSubscription implements controlplane.Client.
func (c *Client) GetSubscription(ctx context.Context, id string) (*controlplane.Subscription, error) {
	var s subscriptionContract
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, nil, &s); err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	sub := s.toSubscription()
	return &sub, nil
}

// CreateOrUpdateSubscription implements controlplane.Client. The display
// name is always the subscription id.
func (c *Client) CreateOrUpdateSubscription(ctx context.Context, spec controlplane.SubscriptionSpec) (*controlplane.Subscription, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid subscription spec: %w", err)
	}

	body := subscriptionContract{Properties: subscriptionProperties{
		OwnerID:     "/users/" + spec.OwnerID,
		Scope:       "/products/" + spec.ProductID,
		DisplayName: spec.ID,
		State:       string(spec.State),
	}}

	var s subscriptionContract
	if err := c.do(ctx, http.MethodPut, "/subscriptions/"+url.PathEscape(spec.ID), nil, body, &s); err != nil {
		return nil, fmt.Errorf("create or update subscription: %w", err)
	}
	sub := s.toSubscription()
	if sub.ID == "" {
		sub.ID = spec.ID
	}
	return &sub, nil
}

// RegenerateKey implements controlplane.Client.
func (c *Client) RegenerateKey(ctx context.Context, subscriptionID string, key controlplane.KeyType) error {
	action := "regeneratePrimaryKey"
	if key == controlplane.KeySecondary {
		action = "regenerateSecondaryKey"
	}
	if err := c.do(ctx, http.MethodPost, "/subscriptions/"+url.PathEscape(subscriptionID)+"/"+action, nil, nil, nil); err != nil {
		return fmt.Errorf("regenerate %s key: %w", key, err)
	}
	return nil
}

// ListSubscriptionsByOwner implements controlplane.Client.
func (c *Client) ListSubscriptionsByOwner(ctx context.Context, ownerID string) ([]controlplane.Subscription, error) {
	items, err := list[subscriptionContract](ctx, c, "/users/"+url.PathEscape(ownerID)+"/subscriptions", nil)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by owner: %w", err)
	}
	subs := make([]controlplane.Subscription, 0, len(items))
	for _, s := range items {
		subs = append(subs, s.toSubscription())
	}
	return subs, nil
}

// GetProductByName implements controlplane.Client.
func (c *Client) GetProductByName(ctx context.Context, name string) (*controlplane.Product, error) {
	products, err := list[productContract](ctx, c, "/products", url.Values{"$filter": {"name eq " + odataQuote(name)}})
	if err != nil {
		return nil, fmt.Errorf("get product by name: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product %s: %w", name, controlplane.ErrNotFound)
	}
	return &controlplane.Product{ID: products[0].Name, Name: products[0].Properties.DisplayName}, nil
}
