package models

import "time"

// Cliente representa uma empresa cliente do contador
// @Description Dados cadastrais de um cliente com indicador de conexão
type Cliente struct {
	// Identificador do cliente
	ID string `json:"id"`
	// Razão social do cliente
	Nome string `json:"nome"`
	// CNPJ do cliente (14 dígitos numéricos)
	// @example "38139407000177"
	CNPJ string `json:"cnpj"`
	// E-mail de contato
	Email string `json:"email,omitempty"`
	// Telefone de contato
	Telefone string `json:"telefone,omitempty"`
	// Indica se o emissor do cliente está conectado no momento.
	// Campo derivado: recalculado a cada ciclo de verificação, nunca persistido.
	Online bool `json:"online"`
}

// TotaisDocumento agrega quantidades e valores de um subtipo de documento fiscal
type TotaisDocumento struct {
	// Quantidade de notas autorizadas
	AutorizadasQuantidade int `json:"autorizadas_quantidade"`
	// Valor total das notas autorizadas
	AutorizadasValor float64 `json:"autorizadas_valor"`
	// Quantidade de notas canceladas
	CanceladasQuantidade int `json:"canceladas_quantidade"`
	// Valor total das notas canceladas
	CanceladasValor float64 `json:"canceladas_valor"`
}

// TotaisFiscais agrega os totais por subtipo de documento (NF-e e NFC-e)
type TotaisFiscais struct {
	NFe  TotaisDocumento `json:"nfe"`
	NFCe TotaisDocumento `json:"nfce"`
}

// Status de uma solicitação conforme reportado pelo backend.
// A conclusão efetiva é inferida pela presença do artefato (ver Concluida).
const (
	StatusPendente  = "pendente"
	StatusConcluida = "concluida"
)

// Solicitacao representa um pedido de geração de XMLs fiscais de um cliente
// @Description Solicitação de XMLs para um intervalo de datas
type Solicitacao struct {
	// Identificador da solicitação
	ID string `json:"id"`
	// Identificador do cliente dono da solicitação
	ClienteID string `json:"cliente_id"`
	// Data inicial do intervalo solicitado (YYYY-MM-DD)
	DataInicio string `json:"data_inicio"`
	// Data final do intervalo solicitado (YYYY-MM-DD)
	DataFim string `json:"data_fim"`
	// Momento de criação da solicitação
	CriadaEm time.Time `json:"criada_em"`
	// Status reportado pelo backend (pendente, concluida)
	Status string `json:"status"`
	// URL do pacote de XMLs gerado; nula enquanto a geração não termina
	XMLURL *string `json:"xml_url"`
	// Mensagem de erro reportada pelo backend, quando houver
	Erro string `json:"erro,omitempty"`
	// Totais fiscais agregados do intervalo
	Totais TotaisFiscais `json:"totais"`
}

// Concluida indica se a solicitação foi atendida. A presença do artefato
// é a fonte de verdade; o campo Status é apenas informativo.
func (s *Solicitacao) Concluida() bool {
	return s.XMLURL != nil && *s.XMLURL != ""
}

// LoteItem representa um cliente membro de um lote
type LoteItem struct {
	// Identificador do cliente
	ClienteID string `json:"cliente_id"`
	// Nome do cliente no momento da criação do lote
	ClienteNome string `json:"cliente_nome"`
}

// Lote representa uma solicitação em grupo cobrindo vários clientes
// @Description Lote de solicitações de XML com acompanhamento por membro
type Lote struct {
	// Identificador do lote
	ID string `json:"id"`
	// Momento de criação do lote
	CriadoEm time.Time `json:"criado_em"`
	// Status agregado reportado pelo backend (apenas informativo; a
	// conclusão do lote é derivada das solicitações dos membros)
	Status string `json:"status"`
	// Clientes membros, na ordem de criação
	Itens []LoteItem `json:"itens"`
}

// Conta representa o perfil do contador autenticado
type Conta struct {
	// Identificador da conta
	ID string `json:"id"`
	// Nome do contador ou escritório
	Nome string `json:"nome"`
	// CNPJ usado como identificador de login
	CNPJ string `json:"cnpj"`
	// Quantidade total de clientes vinculados
	TotalClientes int `json:"total_clientes"`
}
