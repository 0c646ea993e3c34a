package models

// DecisionKind is the terminal state the router reached for one message
type DecisionKind string

const (
	DecisionAcknowledge      DecisionKind = "acknowledge"
	DecisionTrivialPrompt    DecisionKind = "trivial_prompt"
	DecisionMaintenanceAck   DecisionKind = "maintenance_ack"
	DecisionProcedureAnswer  DecisionKind = "procedure_answer"
	DecisionFaqAnswer        DecisionKind = "faq_answer"
	DecisionGenerativeAnswer DecisionKind = "generative_answer"
)

// MaintenanceKind names which collection a maintenance command refreshes
type MaintenanceKind string

const (
	MaintenanceNone       MaintenanceKind = ""
	MaintenanceFaq        MaintenanceKind = "faq"
	MaintenanceProcedures MaintenanceKind = "procedures"
	MaintenanceAll        MaintenanceKind = "all"
)

// RoutingDecision is produced fresh for every inbound message.
// Only the fields relevant to Kind are populated.
type RoutingDecision struct {
	Kind        DecisionKind    `json:"kind"`
	Query       string          `json:"query,omitempty"`
	Maintenance MaintenanceKind `json:"maintenance,omitempty"`
	Refreshed   []RefreshStatus `json:"refreshed,omitempty"`
	Procedure   *ProcedureItem  `json:"procedure,omitempty"`
	Faqs        []FaqItem       `json:"faqs,omitempty"`
	Text        string          `json:"text,omitempty"`
	Confident   bool            `json:"confident"`
	Topic       string          `json:"topic,omitempty"` // Procedure topic hint matched in the text
}
