package models

// Source identifies a medical article (or curated FAQ entry) that backs an
// answer shown to the user.
type Source struct {
	Title string `json:"title"`
	PMID  string `json:"pmid"`
	URL   string `json:"url"`
}

// Article is a raw PubMed record as returned by the fetch step. It is
// request-scoped and never persisted.
type Article struct {
	PMID            string `json:"pmid"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	Journal         string `json:"journal,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"` // YYYY-MM-DD
	Population      string `json:"population,omitempty"`
}

// ArticleURL returns the canonical PubMed URL for the article.
func (a Article) ArticleURL() string {
	return "https://pubmed.ncbi.nlm.nih.gov/" + a.PMID + "/"
}

// FAQItem is a single question/answer pair with its supporting sources.
type FAQItem struct {
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Sources         []Source `json:"sources"`
	Population      string   `json:"population,omitempty"`
}

// FAQQuery is the request body shared by the /faq, /faq/niharika and
// /sources endpoints.
type FAQQuery struct {
	Query         string `json:"query" binding:"required,min=1"`
	MaxResults    int    `json:"max_results" binding:"omitempty,min=1,max=10"`
	SnippetLength int    `json:"snippet_length" binding:"omitempty,min=1"`
}

// FAQResponse wraps a list of FAQ results for the search endpoints.
type FAQResponse struct {
	Results      []FAQItem `json:"results"`
	Query        string    `json:"query"`
	TotalResults int       `json:"total_results"`
	Warning      string    `json:"warning,omitempty"`
}

// Message is a single turn of a conversation.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// PatientProfile is the structured form of the free-text profile block.
// Raw always carries the original text so downstream prompt builders lose
// nothing when a line fails to parse.
type PatientProfile struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	Language string `json:"language,omitempty"`
	Category string `json:"category,omitempty"`
	History  string `json:"history,omitempty"`
	Raw      string `json:"raw"`
}

// TelehealthRequest is the request body for /ashai.
type TelehealthRequest struct {
	Messages []Message `json:"messages" binding:"required,min=1,dive"`
	Profile  string    `json:"profile" binding:"required"`
}

// TelehealthResponse is the agent's answer with the evidence it used.
// Evaluation is set only when self-evaluation ran.
type TelehealthResponse struct {
	Response   string      `json:"response"`
	Sources    []Source    `json:"sources"`
	FAQs       []FAQItem   `json:"faqs"`
	Evaluation *Evaluation `json:"evaluation"`
}

// EvaluationRequest is the request body for /evaluator. Messages take
// precedence over Context when both are present; Context is a fallback
// one-line summary of the conversation.
type EvaluationRequest struct {
	Response string    `json:"response" binding:"required"`
	Context  string    `json:"context"`
	Messages []Message `json:"messages" binding:"omitempty,dive"`
	Profile  string    `json:"profile" binding:"required"`
}

// Evaluation holds the four rubric sub-scores (0-100), the fixed-weight
// overall score and templated feedback. OverallScore is always
// 0.40*accuracy + 0.25*precision + 0.20*clarity + 0.15*empathy.
type Evaluation struct {
	MedicalAccuracy float64 `json:"medical_accuracy"`
	Precision       float64 `json:"precision"`
	LanguageClarity float64 `json:"language_clarity"`
	EmpathyScore    float64 `json:"empathy_score"`
	OverallScore    float64 `json:"overall_score"`
	Feedback        string  `json:"feedback"`
}
