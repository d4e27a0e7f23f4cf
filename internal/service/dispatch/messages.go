package dispatch

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/line-relay/backend/internal/model/persona"
	"github.com/zhouzirui/line-relay/backend/internal/service/tools"
)

// Fixed user-facing texts.
const (
	msgGreeting      = "สวัสดีค่ะ พิมพ์คำถามมาได้เลยนะคะ 🤖"
	msgStatus        = "บอทยังทำงานปกติดีค่ะ ✅"
	msgAIUnavailable = "ขออภัย ระบบ AI ตอบไม่ได้ชั่วคราว ลองอีกครั้งได้ไหมคะ"
	msgNoAnswer      = "ขออภัย ไม่พบคำตอบที่เหมาะสมค่ะ"
	msgTextOnly      = "ตอนนี้รองรับเฉพาะข้อความตัวอักษรนะคะ 🙏"
	msgThinking      = "รับคำถามแล้วค่ะ กำลังหาคำตอบให้นะคะ ⏳"
	msgBusy          = "ตอนนี้มีคำถามเข้ามาเยอะมาก รบกวนส่งใหม่อีกครั้งในอีกสักครู่นะคะ 🙏"
)

var (
	backToChatTokens  = tokenSet("แชท", "คุยต่อ", "กลับ", "chat", "back")
	personaMenuTokens = tokenSet("เมนู", "menu", "บุคลิก", "persona")
	toolsMenuTokens   = tokenSet("เครื่องมือ", "tools", "tool")
	statusTokens      = tokenSet("ping", "health", "status", "เช็คบอท")
)

var selectPrefixes = []string{"เลือก", "select "}

func tokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func topMenu() string {
	return strings.Join([]string{
		"เมนูหลัก:",
		"• พิมพ์ \"เมนู\" เพื่อเลือกบุคลิกของบอท",
		"• พิมพ์ \"เครื่องมือ\" เพื่อดูเครื่องมือคำนวณ",
		"• พิมพ์ \"แชท\" เพื่อกลับมาคุยต่อ",
	}, "\n")
}

func greeting() string {
	return msgGreeting + "\n\n" + topMenu()
}

func backToChat(p persona.Persona) string {
	return fmt.Sprintf("กลับมาคุยต่อแล้วค่ะ ตอนนี้ใช้บุคลิก %s", p.Label())
}

func personaMenu(items []persona.Persona, current string) string {
	var b strings.Builder
	b.WriteString("เลือกบุคลิกได้เลยค่ะ:\n")
	for _, p := range items {
		b.WriteString("• ")
		b.WriteString(p.Label())
		if p.ID == current {
			b.WriteString(" ← ใช้อยู่")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nพิมพ์ \"เลือก<ชื่อ>\" เช่น เลือกteacher")
	return b.String()
}

func toolsMenu(items []tools.Tool) string {
	var b strings.Builder
	b.WriteString("เครื่องมือที่ใช้ได้:")
	for _, t := range items {
		fmt.Fprintf(&b, "\n• %s: %s", t.Description, t.Usage)
	}
	return b.String()
}

func personaSelected(p persona.Persona) string {
	return fmt.Sprintf("เปลี่ยนเป็นบุคลิก %s แล้วค่ะ", p.Label())
}

func unknownPersona(key string) string {
	return fmt.Sprintf("ไม่พบบุคลิก \"%s\" ค่ะ พิมพ์ \"เมนู\" เพื่อดูรายการ", key)
}

func toolUsage(t tools.Tool) string {
	return "รูปแบบคำสั่งไม่ถูกต้องค่ะ\nวิธีใช้: " + t.Usage
}
