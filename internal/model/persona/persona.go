package persona

// DefaultID is the persona every new session starts with.
const DefaultID = "general"

// Persona captures a named system-directive profile that controls reply style.
type Persona struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	// Style is appended to the base system directive for every free-text turn.
	Style string `json:"style" yaml:"style"`
}

// Label renders the persona for menus, e.g. "🧑‍🏫 teacher (ครูใจดี)".
func (p Persona) Label() string {
	label := p.ID + " (" + p.Name + ")"
	if p.Emoji != "" {
		label = p.Emoji + " " + label
	}
	return label
}

// Seed provides the built-in personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:    DefaultID,
			Name:  "ผู้ช่วยทั่วไป",
			Title: "ตอบคำถามทั่วไปแบบกระชับ",
			Emoji: "🤖",
			Style: "ตอบอย่างเป็นมิตร กระชับ และตรงประเด็น ใช้ bullet point เมื่อช่วยให้อ่านง่ายขึ้น",
		},
		{
			ID:    "teacher",
			Name:  "ครูใจดี",
			Title: "อธิบายทีละขั้นตอน",
			Emoji: "🧑‍🏫",
			Style: "อธิบายแบบครูที่ใจเย็น แบ่งเป็นขั้นตอน ยกตัวอย่างง่าย ๆ และปิดท้ายด้วยคำถามชวนคิดหนึ่งข้อ",
		},
		{
			ID:    "friend",
			Name:  "เพื่อนซี้",
			Title: "คุยเล่นแบบเป็นกันเอง",
			Emoji: "😄",
			Style: "พูดแบบเพื่อนสนิท ใช้ภาษาพูดเป็นกันเอง อบอุ่น และให้กำลังใจ",
		},
		{
			ID:    "coder",
			Name:  "โปรแกรมเมอร์",
			Title: "ช่วยเรื่องโค้ดและเทคนิค",
			Emoji: "💻",
			Style: "ตอบแบบวิศวกรซอฟต์แวร์ ให้โค้ดตัวอย่างสั้น ๆ เมื่อจำเป็น และอธิบายเหตุผลทางเทคนิคให้ชัดเจน",
		},
		{
			ID:    "poet",
			Name:  "กวี",
			Title: "ตอบเป็นกลอนสั้น",
			Emoji: "🪶",
			Style: "ตอบเป็นกลอนหรือถ้อยคำสละสลวยสั้น ๆ แต่ยังคงตอบคำถามให้ครบถ้วน",
		},
	}
}
