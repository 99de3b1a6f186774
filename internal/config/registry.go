package config

import (
	"fmt"

	"veritas-scraper/internal/domain/entity"
)

// AcceptPatterns are the URL substrings that mark a link on a listing page as
// an article. A candidate must contain at least one of them.
var AcceptPatterns = []string{
	"/haberi/", "/haber/", "/news/", "/gundem/", "/spor/", "/yasam/", "/dunya/",
	"/turkiye/", "/ekonomi/", "/teknoloji/", "/siyaset/", "/sondakika/",
	"/son-dakika/", "/son_dakika/", "/son-24-saat/", "/daily/",
	"/kategori/1/", "/kategori/2/", "/kategori/3/", "/kategori/4/",
	"/kategori/5/", "/kategori/6/", "/kategori/7/",
	"/yazi/", "/2024/", "/2025/", "-p", "/sondakika-haberleri/",
}

// RejectPatterns exclude gallery, video and infrastructure paths that match an
// accept pattern but never carry an article body.
var RejectPatterns = []string{
	"/galeri/", "/foto/", "/foto-haber/", "/video/", "/video-haber/",
	"/foto_haber/", "/video_haber/", "/fotohaber/", "/videohaber/",
	"/cdn-cgi/", "/email-protection/",
}

// Registry is the declarative catalog of news sources. Slug order is the scrape
// order within a cycle.
type Registry struct {
	sources []entity.Source
	bySlug  map[string]*entity.Source
}

// NewRegistry builds a registry from the given sources, validating each.
func NewRegistry(sources []entity.Source) (*Registry, error) {
	r := &Registry{
		sources: sources,
		bySlug:  make(map[string]*entity.Source, len(sources)),
	}
	for i := range r.sources {
		s := &r.sources[i]
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if _, dup := r.bySlug[s.Slug]; dup {
			return nil, fmt.Errorf("registry: duplicate slug %q", s.Slug)
		}
		r.bySlug[s.Slug] = s
	}
	return r, nil
}

// Sources returns all sources in scrape order.
func (r *Registry) Sources() []entity.Source {
	return r.sources
}

// Lookup returns the source with the given slug, or nil.
func (r *Registry) Lookup(slug string) *entity.Source {
	return r.bySlug[slug]
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// DefaultRegistry returns the built-in catalog of Turkish news sources.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultSources())
	if err != nil {
		// The built-in catalog is static; a validation failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return r
}

func defaultSources() []entity.Source {
	return []entity.Source{
		{
			Slug: "nefes", Name: "Nefes", BaseURL: "https://www.nefes.com.tr/",
			Profile: []entity.SelectorSet{
				{Paragraphs: "div.post-content p"},
				{Paragraphs: "article p, main p"},
			},
		},
		{
			Slug: "haber_sol", Name: "SoL Haber", BaseURL: "https://haber.sol.org.tr/",
			Profile: []entity.SelectorSet{
				{Paragraphs: "div.article-content div.font-mukta p"},
				{Paragraphs: "article p, div.field__item p, main p"},
			},
		},
		{
			Slug: "diken", Name: "Diken", BaseURL: "https://www.diken.com.tr/",
			RSSURLs: []string{"https://www.diken.com.tr/feed/"},
		},
		{
			Slug: "gazete_duvar", Name: "Gazete Duvar", BaseURL: "https://www.gazeteduvar.com.tr/",
			RSSURLs: []string{"https://www.gazeteduvar.com.tr/export/rss"},
			Profile: []entity.SelectorSet{
				{Paragraphs: "div.content-text p"},
				{Paragraphs: `article p, main p, div[class*="article-body"] p`},
			},
		},
		{
			Slug: "evrensel", Name: "Evrensel", BaseURL: "https://www.evrensel.net/",
			ListingPages: []string{
				"https://www.evrensel.net/kategori/1", "https://www.evrensel.net/kategori/2",
				"https://www.evrensel.net/kategori/3", "https://www.evrensel.net/kategori/4",
				"https://www.evrensel.net/kategori/5", "https://www.evrensel.net/kategori/6",
				"https://www.evrensel.net/kategori/7", "https://www.evrensel.net/kategori/8",
				"https://www.evrensel.net/kategori/9", "https://www.evrensel.net/kategori/10",
			},
			Profile: []entity.SelectorSet{
				{Paragraphs: `div[class^="news-"] p`},
				{Paragraphs: `div[class*="content"] p, article p, main p`},
			},
		},
		{
			Slug: "sozcu", Name: "Sözcü", BaseURL: "https://www.sozcu.com.tr/",
			RSSURLs: []string{
				"https://www.sozcu.com.tr/feeds-rss-category-ekonomi",
				"https://www.sozcu.com.tr/feeds-rss-category-spor",
				"https://www.sozcu.com.tr/feeds-rss-category-gundem",
				"https://www.sozcu.com.tr/feeds-son-dakika",
				"https://www.sozcu.com.tr/feeds-haberler",
				"https://www.sozcu.com.tr/feeds-rss-category-dunya",
			},
		},
		{
			Slug: "sendika", Name: "Sendika.Org", BaseURL: "https://www.sendika.org/",
			TitleSelector: "h3.title",
			Profile: []entity.SelectorSet{
				{Paragraphs: "div#news p"},
				{Paragraphs: "article p, main p"},
			},
		},
		{Slug: "gercek_gundem", Name: "Gerçek Gündem", BaseURL: "https://www.gercekgundem.com/"},
		{
			Slug: "tele1", Name: "Tele1", BaseURL: "https://tele1.com.tr/",
			RSSURLs: []string{
				"https://tele1.com.tr/rss",
				"https://www.tele1.com.tr/rss/tum-mansetler",
				"https://www.tele1.com.tr/rss/bilim-ve-teknoloji-evreni",
			},
		},
		{
			Slug: "artigercek", Name: "Artı Gerçek", BaseURL: "https://artigercek.com/",
			RSSURLs: []string{"https://artigercek.com/export/rss"},
		},
		{
			Slug: "politikyol", Name: "PolitikYol", BaseURL: "https://www.politikyol.com/",
			RSSURLs: []string{
				"https://www.politikyol.com/rss",
				"https://www.politikyol.com/rss/ekonomi",
				"https://www.politikyol.com/rss/gundem",
				"https://www.politikyol.com/rss/emek",
				"https://www.politikyol.com/rss/politika",
				"https://www.politikyol.com/rss/spor",
			},
		},
		{
			Slug: "halktv", Name: "Halk TV", BaseURL: "https://www.halktv.com.tr/",
			RSSURLs: []string{"https://halktv.com.tr/service/rss.php"},
		},
		{
			Slug: "trt_haber", Name: "TRT Haber", BaseURL: "https://www.trthaber.com/",
			RSSURLs: []string{"https://www.trthaber.com/sondakika.rss"},
		},
		{Slug: "milliyet", Name: "Milliyet", BaseURL: "https://www.milliyet.com.tr/"},
		{Slug: "hurriyet", Name: "Hürriyet", BaseURL: "https://www.hurriyet.com.tr/"},
		{Slug: "cumhuriyet", Name: "Cumhuriyet", BaseURL: "https://www.cumhuriyet.com.tr/"},
		{
			Slug: "ntv", Name: "NTV", BaseURL: "https://www.ntv.com.tr/",
			Profile: []entity.SelectorSet{
				{Paragraphs: `div[class*="content-news-tag-selector"] p`},
			},
		},
		{Slug: "ahaber", Name: "A Haber", BaseURL: "https://www.ahaber.com.tr/"},
		{
			Slug: "cnnturk", Name: "CNN Türk", BaseURL: "https://www.cnnturk.com/",
			Profile: []entity.SelectorSet{
				{Paragraphs: "section.detail-content p"},
			},
		},
		{
			Slug: "sabah", Name: "Sabah", BaseURL: "https://www.sabah.com.tr/",
			Profile: []entity.SelectorSet{
				{Paragraphs: "div.newsDetailText div.newsBox p"},
				{Paragraphs: "div.page.flex-grow-1 p"},
				{Paragraphs: "div.page[data-page] p"},
				{Paragraphs: "main p"},
			},
		},
		{
			Slug: "haberturk", Name: "Habertürk", BaseURL: "https://www.haberturk.com/",
			GenreOverride: "unknown",
			RSSURLs: []string{
				"https://www.haberturk.com/rss",
				"https://www.haberturk.com/rss/ekonomi.xml",
				"https://www.haberturk.com/rss/spor.xml",
				"https://www.haberturk.com/rss/kategori/siyaset.xml",
				"https://www.haberturk.com/rss/kategori/is-yasam.xml",
				"https://www.haberturk.com/rss/kategori/gundem.xml",
				"https://www.haberturk.com/rss/kategori/dunya.xml",
				"https://www.haberturk.com/rss/kategori/teknoloji.xml",
			},
		},
		{Slug: "ensonhaber", Name: "En Son Haber", BaseURL: "https://www.ensonhaber.com/"},
		{Slug: "posta", Name: "Posta", BaseURL: "https://www.posta.com.tr/"},
		{Slug: "takvim", Name: "Takvim", BaseURL: "https://www.takvim.com.tr/"},
		{
			Slug: "yeni_safak", Name: "Yeni Şafak", BaseURL: "https://www.yenisafak.com/",
			RSSURLs: []string{
				"https://www.yenisafak.com/rss?xml=gundem",
				"https://www.yenisafak.com/rss?xml=ekonomi",
				"https://www.yenisafak.com/rss?xml=spor",
				"https://www.yenisafak.com/rss?xml=dunya",
				"https://www.yenisafak.com/rss?xml=sondakika",
				"https://www.yenisafak.com/rss?xml=teknoloji",
				"https://www.yenisafak.com/rss?xml=saglik",
				"https://www.yenisafak.com/rss?xml=yasam",
				"https://www.yenisafak.com/rss?xml=kultur-sanat",
			},
		},
		{Slug: "star", Name: "Star", BaseURL: "https://www.star.com.tr/"},
		{Slug: "turkiye_gazetesi", Name: "Türkiye Gazetesi", BaseURL: "https://www.turkiyegazetesi.com.tr/"},
		{Slug: "dunya", Name: "Dünya", BaseURL: "https://www.dunya.com/"},
		{Slug: "birgun", Name: "BirGün", BaseURL: "https://www.birgun.net/"},
		{
			Slug: "t24", Name: "T24", BaseURL: "https://t24.com.tr/",
			Profile: []entity.SelectorSet{
				{Paragraphs: `div[class*="3QVZl"] p`},
			},
		},
		{Slug: "bianet", Name: "Bianet", BaseURL: "https://bianet.org/"},
		{Slug: "hurriyet_daily_news", Name: "Hürriyet Daily News", BaseURL: "https://www.hurriyetdailynews.com/"},
		{Slug: "daily_sabah", Name: "Daily Sabah", BaseURL: "https://www.dailysabah.com/"},
	}
}
