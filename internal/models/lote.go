package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Limites de criação de lote
const (
	MinClientesPorLote = 1
	MaxClientesPorLote = 50
	MaxMesesPorLote    = 12

	dateLayout = "2006-01-02"
)

// NovoLote representa uma requisição de criação de lote
// @Description Parâmetros para criação de um lote multi-cliente
type NovoLote struct {
	// Data inicial do intervalo (YYYY-MM-DD)
	DataInicio string `json:"data_inicio"`
	// Data final do intervalo (YYYY-MM-DD)
	DataFim string `json:"data_fim"`
	// Identificadores dos clientes selecionados (1 a 50)
	ClienteIDs []string `json:"cliente_ids"`
}

// NovaSolicitacao representa uma requisição de criação de solicitação avulsa
type NovaSolicitacao struct {
	// Identificador do cliente
	ClienteID string `json:"cliente_id"`
	// Data inicial do intervalo (YYYY-MM-DD)
	DataInicio string `json:"data_inicio"`
	// Data final do intervalo (YYYY-MM-DD)
	DataFim string `json:"data_fim"`
}

// ValidationErrors mapeia o campo ofensor para a mensagem de erro
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "requisição inválida"
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v[field]))
	}
	return strings.Join(parts, "; ")
}

// validateDateRange aplica as regras de intervalo de datas compartilhadas
// entre solicitações avulsas e lotes. O limite de 12 meses é verificado na
// granularidade de mês, ignorando o dia, conforme o comportamento do portal.
func validateDateRange(inicio, fim string, errs ValidationErrors) {
	var start, end time.Time
	var err error

	if inicio == "" {
		errs["data_inicio"] = "data inicial é obrigatória"
	} else if start, err = time.Parse(dateLayout, inicio); err != nil {
		errs["data_inicio"] = "data inicial inválida, use o formato YYYY-MM-DD"
	}

	if fim == "" {
		errs["data_fim"] = "data final é obrigatória"
	} else if end, err = time.Parse(dateLayout, fim); err != nil {
		errs["data_fim"] = "data final inválida, use o formato YYYY-MM-DD"
	}

	if errs["data_inicio"] != "" || errs["data_fim"] != "" {
		return
	}

	if start.After(end) {
		errs["data_fim"] = "data final deve ser posterior à data inicial"
		return
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months > MaxMesesPorLote {
		errs["data_fim"] = fmt.Sprintf("intervalo máximo de %d meses", MaxMesesPorLote)
	}
}

// Validate valida a requisição de criação de lote. Retorna nil quando
// todos os campos são válidos.
func (n *NovoLote) Validate() ValidationErrors {
	errs := ValidationErrors{}
	validateDateRange(n.DataInicio, n.DataFim, errs)

	switch {
	case len(n.ClienteIDs) < MinClientesPorLote:
		errs["cliente_ids"] = "selecione pelo menos um cliente"
	case len(n.ClienteIDs) > MaxClientesPorLote:
		errs["cliente_ids"] = fmt.Sprintf("máximo de %d clientes por lote", MaxClientesPorLote)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate valida a requisição de criação de solicitação avulsa
func (n *NovaSolicitacao) Validate() ValidationErrors {
	errs := ValidationErrors{}
	validateDateRange(n.DataInicio, n.DataFim, errs)

	if n.ClienteID == "" {
		errs["cliente_id"] = "cliente é obrigatório"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
