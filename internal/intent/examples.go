package intent

import "github.com/custodia-labs/lexrag/internal/core/domain"

// Example is one labelled training query.
type Example struct {
	Intent domain.Intent
	Text   string
}

// SeedExamples is the built-in training set, five queries per intent.
var SeedExamples = []Example{
	{domain.IntentDefinition, "What is hacking?"},
	{domain.IntentDefinition, "Define phishing"},
	{domain.IntentDefinition, "What does cyber crime mean?"},
	{domain.IntentDefinition, "Explain digital signature"},
	{domain.IntentDefinition, "What is the IT Act?"},

	{domain.IntentPenalty, "What is the punishment for hacking?"},
	{domain.IntentPenalty, "Penalty for data theft"},
	{domain.IntentPenalty, "Fine for cyber fraud"},
	{domain.IntentPenalty, "Jail term for online harassment"},
	{domain.IntentPenalty, "Legal consequences of phishing"},

	{domain.IntentProcedure, "How to file cyber crime complaint?"},
	{domain.IntentProcedure, "Procedure for digital signature"},
	{domain.IntentProcedure, "Steps to report online fraud"},
	{domain.IntentProcedure, "Process for data protection compliance"},
	{domain.IntentProcedure, "How to register cyber complaint?"},

	{domain.IntentSection, "Section 66 of IT Act"},
	{domain.IntentSection, "What is Section 43A?"},
	{domain.IntentSection, "Explain IT Act Section 72"},
	{domain.IntentSection, "Cyber law section for hacking"},
	{domain.IntentSection, "Legal section for data breach"},
}
