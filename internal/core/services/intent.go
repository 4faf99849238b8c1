package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Intent is a structured query class answered without vector search.
type Intent string

const (
	IntentCountDocuments Intent = "count_documents"
	IntentListDocuments  Intent = "list_documents"
	IntentHowTo          Intent = "how_to"
	IntentValidation     Intent = "validation"
	IntentNone           Intent = "none"
)

// Keyword sets are matched against the lowercased query. Portuguese
// first, English as a courtesy for mixed-language teams.
var intentKeywords = map[Intent][]string{
	IntentCountDocuments: {
		"quantos documentos", "quantas notas", "quantos arquivos",
		"total de documentos", "total de notas",
		"how many documents", "how many notes", "document count",
	},
	IntentListDocuments: {
		"liste os documentos", "listar documentos", "quais documentos",
		"mostre os documentos", "documentos disponíveis", "notas disponíveis",
		"list documents", "list the documents", "which documents", "show documents",
	},
	IntentHowTo: {
		"como faço para", "como enviar", "como adicionar", "como importar",
		"como usar o sistema", "como funciona o sistema",
		"how do i upload", "how do i add", "how do i import", "how does the system work",
	},
	IntentValidation: {
		"está válida", "é válida", "nota é valida", "validar nota",
		"chave de acesso é válida", "verificar autenticidade",
		"is this note valid", "validate the invoice", "verify authenticity",
	},
}

const howToText = `Para adicionar documentos fiscais, envie os arquivos XML (NFe, NFCe, CTe ou MDFe) ` +
	`pela área de importação. Cada documento é processado em segundo plano e fica disponível ` +
	`para perguntas assim que a indexação terminar. Use esta conversa para perguntar sobre ` +
	`valores, emissores, datas e conteúdo dos documentos enviados.`

const validationText = `A validação de autenticidade de documentos fiscais deve ser feita no portal ` +
	`oficial da SEFAZ usando a chave de acesso de 44 dígitos. Este assistente responde sobre o ` +
	`conteúdo dos documentos importados, mas não consulta a SEFAZ.`

// IntentRouter answers structured questions straight from the document
// store, skipping embeddings and the chat provider.
type IntentRouter struct {
	documentStore driven.DocumentStore
	logger        *slog.Logger
	listLimit     int
}

func NewIntentRouter(documentStore driven.DocumentStore, logger *slog.Logger) *IntentRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentRouter{
		documentStore: documentStore,
		logger:        logger,
		listLimit:     20,
	}
}

// Classify maps a query to an intent. First keyword set that matches
// wins, checked in a fixed order so classification is deterministic.
func (r *IntentRouter) Classify(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return IntentNone
	}
	for _, intent := range []Intent{IntentCountDocuments, IntentListDocuments, IntentHowTo, IntentValidation} {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(q, kw) {
				return intent
			}
		}
	}
	return IntentNone
}

// Handle answers the query if it matches a structured intent. The
// second return reports whether the query was handled; false means the
// caller should fall through to the retrieval pipeline.
func (r *IntentRouter) Handle(ctx context.Context, query string) (*domain.Answer, bool) {
	intent := r.Classify(query)
	if intent == IntentNone {
		return nil, false
	}

	start := time.Now()
	var text string
	var err error

	switch intent {
	case IntentCountDocuments:
		text, err = r.countAnswer(ctx)
	case IntentListDocuments:
		text, err = r.listAnswer(ctx)
	case IntentHowTo:
		text = howToText
	case IntentValidation:
		text = validationText
	}

	if err != nil {
		// Store failures fall through to retrieval rather than
		// surfacing a broken direct answer.
		r.logger.Warn("intent handler failed, falling through", "intent", intent, "error", err)
		return nil, false
	}

	return &domain.Answer{
		Kind:     domain.AnswerKindDirect,
		Text:     text,
		Metadata: map[string]string{"intent": string(intent)},
		Took:     time.Since(start),
	}, true
}

func (r *IntentRouter) countAnswer(ctx context.Context) (string, error) {
	total, err := r.documentStore.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count documents: %w", err)
	}
	if total == 0 {
		return "Nenhum documento foi importado ainda.", nil
	}

	indexed, err := r.documentStore.CountByStatus(ctx, domain.EmbeddingStatusCompleted)
	if err != nil {
		return "", fmt.Errorf("count by status: %w", err)
	}
	failed, err := r.documentStore.CountByStatus(ctx, domain.EmbeddingStatusFailed)
	if err != nil {
		return "", fmt.Errorf("count by status: %w", err)
	}

	text := fmt.Sprintf("Há %d documento(s) importado(s).", total)
	if indexed > 0 {
		text += fmt.Sprintf(" %d já indexado(s) e disponível(is) para perguntas.", indexed)
	}
	if pending := total - indexed - failed; pending > 0 {
		text += fmt.Sprintf(" %d em processamento.", pending)
	}
	if failed > 0 {
		text += fmt.Sprintf(" %d com falha de indexação.", failed)
	}
	return text, nil
}

func (r *IntentRouter) listAnswer(ctx context.Context) (string, error) {
	page, err := r.documentStore.List(ctx, 1, r.listLimit, domain.DocumentFilter{})
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}
	if len(page.Documents) == 0 {
		return "Nenhum documento foi importado ainda.", nil
	}

	docs := make([]*domain.Document, len(page.Documents))
	copy(docs, page.Documents)
	sort.Slice(docs, func(i, j int) bool { return docs[i].FileName < docs[j].FileName })

	var b strings.Builder
	fmt.Fprintf(&b, "Documentos importados (%d no total):\n", page.TotalCount)
	for _, doc := range docs {
		fmt.Fprintf(&b, "- %s (%s", doc.FileName, strings.ToUpper(string(doc.DocumentType)))
		if doc.TotalValue > 0 {
			fmt.Fprintf(&b, ", R$ %.2f", doc.TotalValue)
		}
		b.WriteString(")\n")
	}
	if page.TotalCount > r.listLimit {
		fmt.Fprintf(&b, "… e mais %d documento(s).\n", page.TotalCount-r.listLimit)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
