package domain

type Feature string

const (
	FeatureChat             Feature = "chat"
	FeatureGoals            Feature = "goals"
	FeatureDailySummary     Feature = "daily_summary"
	FeatureVoice            Feature = "voice"
	FeatureRealtimeVoice    Feature = "realtime_voice"
	FeatureGeminiLive       Feature = "gemini_live"
	FeatureWeeklySummary    Feature = "weekly_summary"
	FeatureMonthlySummary   Feature = "monthly_summary"
	FeatureBusinessInsights Feature = "business_insights"
)

var proFeatures = map[Feature]bool{
	FeatureVoice:            true,
	FeatureRealtimeVoice:    true,
	FeatureGeminiLive:       true,
	FeatureWeeklySummary:    true,
	FeatureMonthlySummary:   true,
	FeatureBusinessInsights: true,
}

// RequiresPro reports whether the feature is gated behind the pro tier.
func (f Feature) RequiresPro() bool {
	return proFeatures[f]
}
