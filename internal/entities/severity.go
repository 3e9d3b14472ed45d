package entities

// SeverityTier is one of the three fixed alert levels
type SeverityTier int

const (
	TierNormal SeverityTier = iota
	TierWatch
	TierCritical
)

type tierCopy struct {
	name           string
	icon           string
	title          string
	recommendation string
}

var tiers = map[SeverityTier]tierCopy{
	TierNormal: {
		name:           "NORMAL",
		icon:           "🟩",
		title:          "สถานะปกติ",
		recommendation: "สถานการณ์น้ำยังปกติ ใช้ชีวิตได้ตามปกติครับ",
	},
	TierWatch: {
		name:  "WATCH",
		icon:  "🟨",
		title: "‼️ ประกาศเฝ้าระวัง ‼️",
		recommendation: "คำแนะนำ:\n" +
			"1. บ้านเรือนริมตลิ่งนอกคันกั้นน้ำ ให้เริ่มขนของขึ้นที่สูง\n" +
			"2. ติดตามสถานการณ์อย่างใกล้ชิด",
	},
	TierCritical: {
		name:  "CRITICAL",
		icon:  "🟥",
		title: "‼️ ประกาศเตือนภัยระดับสูงสุด ‼️",
		recommendation: "คำแนะนำ:\n" +
			"1. เตรียมพร้อมอพยพหากอยู่ในพื้นที่เสี่ยง\n" +
			"2. ขนย้ายทรัพย์สินขึ้นที่สูงโดยด่วน\n" +
			"3. งดใช้เส้นทางสัญจรริมแม่น้ำ",
	},
}

func (t SeverityTier) String() string {
	if c, ok := tiers[t]; ok {
		return c.name
	}
	return "UNKNOWN"
}

// Icon returns the colored square shown in front of the title
func (t SeverityTier) Icon() string { return tiers[t].icon }

// Title returns the headline of the alert
func (t SeverityTier) Title() string { return tiers[t].title }

// Recommendation returns the multi-line advice printed at the end of the alert
func (t SeverityTier) Recommendation() string { return tiers[t].recommendation }
