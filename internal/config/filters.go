package config

// Filters carries the classifier keyword lists. It is built once at startup
// and passed by value into every classifier call; nothing mutates it after
// Load.
type Filters struct {
	// FilterLiveChannels gates the whole VOD-vs-live decision. When false
	// every entry is treated as VOD.
	FilterLiveChannels bool

	// Explicit Spanish markers in the tvg-language tag.
	SpanishLanguages []string
	// Explicit Spanish markers in the tvg-country tag.
	SpanishCountries []string
	// Spanish indicators in group-title. Deliberately excludes generic words
	// like "series" or "peliculas" that appear in lists of any language.
	// Keywords of three characters or fewer are matched on word boundaries.
	SpanishGroups []string

	// group-title words that mark a live TV channel.
	LiveChannelGroups []string
	// URL path fragments that confirm a live stream.
	LiveURLPaths []string
	// URL path fragments that confirm VOD.
	VODURLPaths []string
	// group-title words that confirm VOD.
	VODConfirmedGroups []string
}

var defaultSpanishLanguages = []string{
	"spanish", "español", "castellano", "espanol", "castella", "spa",
}

var defaultSpanishCountries = []string{
	"es", "esp", "spain", "españa", "espana",
}

var defaultSpanishGroups = []string{
	"spain", "españa", "español", "castellano", "espana", "espanol",
	"esp",
	"|es|", "|esp|", "|spa|", "[es]", "[esp]",
	"es -", "- es", "- esp", "esp -",
	"es|", "|es", "esp|", "|esp",
	"peliculas es", "películas es", "pelicula es",
	"series es", "series esp", "series spain",
	"movies es", "movies esp", "movies spain",
	"films es", "vod es", "vod esp",
	"spain vod", "es vod", "esp vod",
	"en español", "en castellano",
}

var defaultLiveChannelGroups = []string{
	"live", "directo", "direct", "24h", "24/7",
	"news", "noticias",
	"sport", "sports", "deportes", "deporte", "futbol", "fútbol",
	"radio",
	"music", "musica", "música",
	"adult", "xxx", "erotic", "porno",
	"kids", "infantil", "children",
	"shopping", "teleshopping",
	"religious", "religion",
	"canal", "canales", "channel", "channels",
	"tdt", // terrestrial broadcast bundles (Spain/LatAm)
}

var defaultLiveURLPaths = []string{"/live/", "//live/"}

var defaultVODURLPaths = []string{
	"/movie/", "/movies/", "/vod/", "/film/", "/films/",
	"/series/", "/serie/", "/shows/", "/show/",
}

var defaultVODConfirmedGroups = []string{
	"pelicula", "película", "peliculas", "películas",
	"movie", "movies", "film", "films", "cine", "cinema",
	"serie", "series", "show", "shows", "temporada", "temporadas",
	"documental", "documentales", "documentary",
	"animacion", "animación", "anime", "dorama", "vod",
}

// LoadFilters builds the filter configuration from the environment, falling
// back to the built-in keyword lists. List envs are comma-separated.
func LoadFilters() Filters {
	return Filters{
		FilterLiveChannels: getEnvBool("CINECADIZ_FILTER_LIVE_CHANNELS", true),
		SpanishLanguages:   getEnvList("CINECADIZ_SPANISH_LANGUAGES", defaultSpanishLanguages),
		SpanishCountries:   getEnvList("CINECADIZ_SPANISH_COUNTRIES", defaultSpanishCountries),
		SpanishGroups:      getEnvList("CINECADIZ_SPANISH_GROUPS", defaultSpanishGroups),
		LiveChannelGroups:  getEnvList("CINECADIZ_LIVE_CHANNEL_GROUPS", defaultLiveChannelGroups),
		LiveURLPaths:       getEnvList("CINECADIZ_LIVE_URL_PATHS", defaultLiveURLPaths),
		VODURLPaths:        getEnvList("CINECADIZ_VOD_URL_PATHS", defaultVODURLPaths),
		VODConfirmedGroups: getEnvList("CINECADIZ_VOD_CONFIRMED_GROUPS", defaultVODConfirmedGroups),
	}
}
