package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clienteIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("cli-%03d", i)
	}
	return ids
}

func TestNovoLoteValidateDatas(t *testing.T) {
	tests := []struct {
		name   string
		inicio string
		fim    string
		field  string
	}{
		{"fim antes do inicio", "2024-01-10", "2024-01-05", "data_fim"},
		{"treze meses", "2023-01-01", "2024-02-01", "data_fim"},
		{"inicio vazio", "", "2024-01-05", "data_inicio"},
		{"fim vazio", "2024-01-05", "", "data_fim"},
		{"formato invalido", "10/01/2024", "2024-01-05", "data_inicio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lote := &NovoLote{DataInicio: tt.inicio, DataFim: tt.fim, ClienteIDs: clienteIDs(1)}
			errs := lote.Validate()
			require.NotNil(t, errs)
			assert.NotEmpty(t, errs[tt.field])
		})
	}
}

func TestNovoLoteValidateDatasValidas(t *testing.T) {
	// 11 meses na granularidade de mês, mesmo cruzando o dia do mês
	lote := &NovoLote{DataInicio: "2023-01-01", DataFim: "2023-12-01", ClienteIDs: clienteIDs(3)}
	assert.Nil(t, lote.Validate())

	// exatamente 12 meses ainda é permitido
	lote = &NovoLote{DataInicio: "2023-01-15", DataFim: "2024-01-02", ClienteIDs: clienteIDs(3)}
	assert.Nil(t, lote.Validate())

	// mesmo dia
	lote = &NovoLote{DataInicio: "2024-03-08", DataFim: "2024-03-08", ClienteIDs: clienteIDs(3)}
	assert.Nil(t, lote.Validate())
}

func TestNovoLoteValidateClientes(t *testing.T) {
	base := NovoLote{DataInicio: "2024-01-01", DataFim: "2024-02-01"}

	nenhum := base
	nenhum.ClienteIDs = nil
	errs := nenhum.Validate()
	require.NotNil(t, errs)
	assert.Equal(t, "selecione pelo menos um cliente", errs["cliente_ids"])

	demais := base
	demais.ClienteIDs = clienteIDs(51)
	errs = demais.Validate()
	require.NotNil(t, errs)
	assert.Contains(t, errs["cliente_ids"], "50")

	limite := base
	limite.ClienteIDs = clienteIDs(50)
	assert.Nil(t, limite.Validate())
}

func TestNovaSolicitacaoValidate(t *testing.T) {
	s := &NovaSolicitacao{ClienteID: "cli-1", DataInicio: "2024-01-01", DataFim: "2024-01-31"}
	assert.Nil(t, s.Validate())

	s.ClienteID = ""
	errs := s.Validate()
	require.NotNil(t, errs)
	assert.NotEmpty(t, errs["cliente_id"])
}

func TestSolicitacaoConcluida(t *testing.T) {
	var s Solicitacao
	assert.False(t, s.Concluida())

	vazia := ""
	s.XMLURL = &vazia
	assert.False(t, s.Concluida())

	url := "https://storage.example.com/xml/abc.zip"
	s.XMLURL = &url
	assert.True(t, s.Concluida())

	// o campo status sozinho não marca conclusão
	s.XMLURL = nil
	s.Status = StatusConcluida
	assert.False(t, s.Concluida())
}
