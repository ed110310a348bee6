package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/portalxml/portal-api/internal/models"
)

// ConnectedSet is the set of client ids whose emitters are online
type ConnectedSet map[string]struct{}

// Contains reports membership of a client id
func (s ConnectedSet) Contains(clienteID string) bool {
	_, ok := s[clienteID]
	return ok
}

// Login exchanges cnpj+password for a bearer token. The token is NOT
// stored automatically; callers decide whether it goes into the store or
// is forwarded to the UI session.
func (c *Client) Login(ctx context.Context, cnpj, senha string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"cnpj": cnpj, "senha": senha}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &DecodeError{Endpoint: "/auth/login", Err: fmt.Errorf("token ausente na resposta")}
	}
	return out.Token, nil
}

// PrimeiroAcesso registers the password on first access
func (c *Client) PrimeiroAcesso(ctx context.Context, cnpj, senha string) error {
	body := map[string]string{"cnpj": cnpj, "senha": senha}
	return c.do(ctx, http.MethodPost, "/auth/primeiro-acesso", body, nil)
}

// SolicitarRedefinicao requests a password-reset e-mail
func (c *Client) SolicitarRedefinicao(ctx context.Context, cnpj string) error {
	body := map[string]string{"cnpj": cnpj}
	return c.do(ctx, http.MethodPost, "/auth/solicitar-redefinicao", body, nil)
}

// RedefinirSenha consumes a reset token and sets the new password
func (c *Client) RedefinirSenha(ctx context.Context, resetToken, senha string) error {
	body := map[string]string{"token": resetToken, "senha": senha}
	return c.do(ctx, http.MethodPost, "/auth/redefinir-senha", body, nil)
}

// Clientes lists the accountant's clients for the dashboard
func (c *Client) Clientes(ctx context.Context) ([]models.Cliente, error) {
	var out []models.Cliente
	if err := c.do(ctx, http.MethodGet, "/clientes", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].ID == "" {
			return nil, &DecodeError{Endpoint: "/clientes", Err: fmt.Errorf("cliente sem id na posição %d", i)}
		}
	}
	return out, nil
}

// ClientesMenu lists clients through the authenticated sidebar variant
func (c *Client) ClientesMenu(ctx context.Context) ([]models.Cliente, error) {
	var out []models.Cliente
	if err := c.do(ctx, http.MethodGet, "/auth/clientes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cliente fetches a single client
func (c *Client) Cliente(ctx context.Context, id string) (*models.Cliente, error) {
	var out models.Cliente
	path := "/auth/clientes/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &DecodeError{Endpoint: path, Err: fmt.Errorf("cliente sem id")}
	}
	return &out, nil
}

// Conta fetches the accountant profile
func (c *Client) Conta(ctx context.Context) (*models.Conta, error) {
	var out models.Conta
	if err := c.do(ctx, http.MethodGet, "/conta", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Solicitacoes lists the XML requests of a client
func (c *Client) Solicitacoes(ctx context.Context, clienteID string) ([]models.Solicitacao, error) {
	var out []models.Solicitacao
	path := "/auth/solicitacoes/" + url.PathEscape(clienteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].ID == "" {
			return nil, &DecodeError{Endpoint: path, Err: fmt.Errorf("solicitação sem id na posição %d", i)}
		}
	}
	return out, nil
}

// CriarSolicitacao creates a single XML request
func (c *Client) CriarSolicitacao(ctx context.Context, nova models.NovaSolicitacao) (*models.Solicitacao, error) {
	var out models.Solicitacao
	if err := c.do(ctx, http.MethodPost, "/auth/solicitacoes", nova, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExcluirSolicitacao deletes an XML request
func (c *Client) ExcluirSolicitacao(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/solicitacoes/"+url.PathEscape(id), nil, nil)
}

// ClientesConectados fetches the set of currently-online client ids
func (c *Client) ClientesConectados(ctx context.Context) (ConnectedSet, error) {
	var ids []string
	if err := c.do(ctx, http.MethodGet, "/ws/clientes-conectados", nil, &ids); err != nil {
		return nil, err
	}
	set := make(ConnectedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// CriarLote creates a multi-client batch request
func (c *Client) CriarLote(ctx context.Context, novo models.NovoLote) (*models.Lote, error) {
	var out models.Lote
	if err := c.do(ctx, http.MethodPost, "/lotes", novo, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &DecodeError{Endpoint: "/lotes", Err: fmt.Errorf("lote sem id")}
	}
	return &out, nil
}

// Lote fetches a batch with its member list
func (c *Client) Lote(ctx context.Context, id string) (*models.Lote, error) {
	var out models.Lote
	path := "/lotes/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &DecodeError{Endpoint: path, Err: fmt.Errorf("lote sem id")}
	}
	return &out, nil
}

// EnviarFeedback submits free-text feedback
func (c *Client) EnviarFeedback(ctx context.Context, mensagem string) error {
	body := map[string]string{"mensagem": mensagem}
	return c.do(ctx, http.MethodPost, "/feedback/enviar", body, nil)
}
