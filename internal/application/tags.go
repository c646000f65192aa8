package application

// Reason is a tag answering "why are you here?".
type Reason string

const (
	ReasonBuild Reason = "build"
	ReasonLearn Reason = "learn"
	ReasonMeet  Reason = "meet"
	ReasonFlex  Reason = "flex"
	ReasonChaos Reason = "chaos"
	ReasonOther Reason = "other"
)

// Interest is a tag answering "what gets you hyped?".
type Interest string

const (
	InterestCoding      Interest = "coding"
	InterestRobotics    Interest = "robotics"
	InterestPrinting    Interest = "printing"
	InterestAI          Interest = "ai"
	InterestGameDev     Interest = "gamedev"
	InterestElectronics Interest = "electronics"
	InterestBreaking    Interest = "breaking"
)

type SkillLevel string

const (
	SkillNewbie   SkillLevel = "newbie"
	SkillHobbyist SkillLevel = "hobbyist"
	SkillPro      SkillLevel = "pro"
	SkillLegend   SkillLevel = "legend"
)

type Discovery string

const (
	DiscoverySocial  Discovery = "social"
	DiscoveryYouTube Discovery = "youtube"
	DiscoveryFriend  Discovery = "friend"
	DiscoverySearch  Discovery = "search"
	DiscoveryOther   Discovery = "other"
)

// Option is one selectable choice as shown by a renderer.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Option lists keep the display order of the join form.
var (
	ReasonOptions = []Option{
		{Value: string(ReasonBuild), Label: "to build cool shit"},
		{Value: string(ReasonLearn), Label: "to learn and level up my skills"},
		{Value: string(ReasonMeet), Label: "to meet other cracked engineers"},
		{Value: string(ReasonFlex), Label: "to flex my projects and get feedback"},
		{Value: string(ReasonChaos), Label: "just here for the chaos 🚀"},
		{Value: string(ReasonOther), Label: "other"},
	}

	InterestOptions = []Option{
		{Value: string(InterestCoding), Label: "coding & software hacks"},
		{Value: string(InterestRobotics), Label: "robotics & hardware tinkering"},
		{Value: string(InterestPrinting), Label: "3d printing & cad design"},
		{Value: string(InterestAI), Label: "ai & machine learning"},
		{Value: string(InterestGameDev), Label: "game dev & graphics"},
		{Value: string(InterestElectronics), Label: "electronics & circuitry"},
		{Value: string(InterestBreaking), Label: "just here to break stuff and make it better"},
	}

	SkillLevelOptions = []Option{
		{Value: string(SkillNewbie), Label: "newbie (just getting started)"},
		{Value: string(SkillHobbyist), Label: "hobbyist (i've built a few things)"},
		{Value: string(SkillPro), Label: "pro (i live and breathe this stuff)"},
		{Value: string(SkillLegend), Label: "legend (i'm the one people call for help)"},
	}

	DiscoveryOptions = []Option{
		{Value: string(DiscoverySocial), Label: "social media (twitter/x, instagram, tiktok)"},
		{Value: string(DiscoveryYouTube), Label: "youtube"},
		{Value: string(DiscoveryFriend), Label: "friend or colleague"},
		{Value: string(DiscoverySearch), Label: "online search"},
		{Value: string(DiscoveryOther), Label: "other"},
	}
)

func declared(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func (r Reason) Valid() bool     { return declared(ReasonOptions, string(r)) }
func (i Interest) Valid() bool   { return declared(InterestOptions, string(i)) }
func (s SkillLevel) Valid() bool { return declared(SkillLevelOptions, string(s)) }
func (d Discovery) Valid() bool  { return declared(DiscoveryOptions, string(d)) }

// Label returns the display label for value in opts, or value itself when
// it is not declared.
func Label(opts []Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
