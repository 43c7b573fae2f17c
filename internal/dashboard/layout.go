package dashboard

import "github.com/hitoshi/startupconnect/internal/model"

type layout struct {
	tagline           string
	profileHeading    string
	profileTags       []string
	stats             []Stat
	searchPlaceholder string
	focus             []FocusOption
	listHeading       string
	actionLabel       string
	cardTags          []string
	cardDetails       []string
	cardMetrics       []Metric
	cardBadge         string
}

// layoutFor はロールごとの固定表示内容を返す。
func layoutFor(viewer *model.Identity) layout {
	if viewer.Role == model.RoleInvestor {
		return layout{
			tagline:        "Discover promising startups to invest in",
			profileHeading: "Investment Profile",
			profileTags:    []string{"Early Stage", "Technology", "$50K - $500K"},
			stats: []Stat{
				{Value: "24", Label: "Portfolio Companies"},
				{Value: "$2.5M", Label: "Total Invested"},
				{Value: "4.9", Label: "Investor Rating"},
			},
			searchPlaceholder: "Search startups by name, industry, or description...",
			focus: []FocusOption{
				{Value: "all", Label: "All Startups"},
				{Value: "technology", Label: "Technology"},
				{Value: "healthcare", Label: "Healthcare"},
				{Value: "fintech", Label: "FinTech"},
				{Value: "ecommerce", Label: "E-commerce"},
			},
			listHeading: "Discover Startups",
			actionLabel: "Invest",
			cardTags:    []string{"SaaS", "B2B", "AI"},
			cardMetrics: []Metric{
				{Label: "Valuation", Value: "$5M"},
				{Label: "Seeking", Value: "$1M"},
				{Label: "Traction", Value: "10K users"},
			},
			cardBadge: "Series A",
		}
	}

	return layout{
		tagline:        "Find the perfect investors for your startup",
		profileHeading: "Your Startup Profile",
		profileTags:    []string{"Technology", "Series A", "B2B"},
		stats: []Stat{
			{Value: viewer.Company, Label: "Your Startup"},
			{Value: "12", Label: "Connections"},
			{Value: "4.8", Label: "Rating"},
		},
		searchPlaceholder: "Search investors by name, company, or expertise...",
		focus: []FocusOption{
			{Value: "all", Label: "All Investors"},
			{Value: "early", Label: "Early Stage"},
			{Value: "growth", Label: "Growth Stage"},
			{Value: "venture", Label: "Venture Capital"},
		},
		listHeading: "Discover Investors",
		actionLabel: "Connect",
		cardTags:    []string{"SaaS", "FinTech", "AI/ML"},
		cardDetails: []string{"San Francisco, CA", "Tech Focus"},
	}
}
