package models

// Credential is the Spotify token pair. Validity is probed against the API, never inferred from an expiry.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// Device is a Spotify Connect playback target.
type Device struct {
	ID       string
	Name     string
	Type     string
	IsActive bool
}

// Artist identifies a Spotify artist.
type Artist struct {
	ID     string
	Name   string
	Genres []string
}

// FeatureRange bounds an audio feature for recommendations.
type FeatureRange struct {
	Min float64
	Max float64
}

// RecommendationParameters is what the gateway derives from the user's text.
type RecommendationParameters struct {
	Genre              string
	Acousticness       FeatureRange
	Energy             FeatureRange
	Instrumentalness   FeatureRange
	Danceability       FeatureRange
	Tempo              FeatureRange
	RecommendedArtists []string
}

// PlaybackResult summarizes a request that ended with playback started.
type PlaybackResult struct {
	PlaylistID   string
	PlaylistName string
	DeviceName   string
	Genre        string
	TrackCount   int
}
