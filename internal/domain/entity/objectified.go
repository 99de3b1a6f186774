package entity

// ObjectifiedArticle is the single neutral record produced from a cluster of
// RawArticles by the LLM objectification stage. The JSON layout matches what
// the backend insert endpoint expects.
type ObjectifiedArticle struct {
	ID              *int64   `json:"id"`
	ArticleID       string   `json:"articleId"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Summary         string   `json:"summary"`
	LongerSummary   string   `json:"longerSummary"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Source          []string `json:"source"`
	Location        *string  `json:"location"`
	PopularityScore int      `json:"popularityScore"`
	CreatedAt       string   `json:"createdAt"`
	Image           *string  `json:"image"`
	Priority        *int     `json:"priority"`
}

// Categories is the closed set of Turkish category names the objectifier may
// assign. Anything outside the set collapses to CategoryFallback.
var Categories = []string{
	"Siyaset",
	"Eğlence",
	"Spor",
	"Teknoloji",
	"Sağlık",
	"Çevre",
	"Bilim",
	"Eğitim",
	"Ekonomi",
	"Seyahat",
	"Moda",
	"Kültür",
	"Suç",
	"Yemek",
	"Yaşam Tarzı",
	"İş Dünyası",
	"Dünya Haberleri",
	"Oyun",
	"Otomotiv",
	"Sanat",
	"Tarih",
	"Uzay",
	"İlişkiler",
	"Din",
	"Ruh Sağlığı",
	"Magazin",
}

// CategoryFallback is assigned when the model output is not one of Categories.
const CategoryFallback = "Genel"

// NormalizeCategory maps a model answer onto the closed category set.
func NormalizeCategory(answer string) string {
	for _, c := range Categories {
		if c == answer {
			return c
		}
	}
	return CategoryFallback
}
