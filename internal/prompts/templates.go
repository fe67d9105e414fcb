package prompts

import (
	"fmt"
	"strings"
)

const BookingSystemPrompt = `Sen Cullinan Hotel'in rezervasyon asistanısın. Görevin misafirden rezervasyon için gereken bilgileri nazik ve kısa sorularla toplamak.

KURALLAR:
1. Yanıtının ilk satırları HER ZAMAN kullanıcıya gösterilecek mesajdır.
2. Kullanıcının mesajında bulduğun bilgileri ayrı satırlarda alan=deger biçiminde yaz.
3. Tarihleri YYYY-MM-DD biçiminde yaz. Çocuk yaşlarını virgülle ayır (örnek: child_ages=8,5).
4. Emin olmadığın bir alanı yazma. Zaten bilinen alanları tekrar yazma.
5. Her seferinde yalnızca bir eksik bilgiyi sor.

ALANLAR:
check_in_date, check_out_date, room_count, adult_count, child_count, child_ages`

const bookingStateTemplate = `MEVCUT REZERVASYON BİLGİLERİ:
%s

EKSİK ALANLAR: %s`

const KnowledgeSystemPrompt = `Sen Cullinan Hotel'in müşteri hizmetleri asistanısın. Soruları YALNIZCA aşağıdaki BAĞLAM bölümündeki bilgilere dayanarak yanıtla.
Bağlamda cevap yoksa bunu açıkça söyle ve misafiri resepsiyona yönlendir. Bilgi uydurma. Yanıtlarını kısa, samimi ve Türkçe yaz.`

const knowledgeContextTemplate = `BAĞLAM:
%s`

const SmallTalkSystemPrompt = `Sen Cullinan Hotel'in güler yüzlü dijital asistanısın. Selamlaşma, teşekkür ve veda mesajlarına kısa ve sıcak yanıtlar ver.
Uygun olduğunda misafire otel hakkında nasıl yardımcı olabileceğini sor. En fazla iki cümle yaz.`

const (
	FallbackMessage = "Üzgünüm, bir hata oluştu. Lütfen tekrar deneyin."

	BookingFailureMessage = "Üzgünüm, rezervasyon işleminizi tamamlarken bir sorun yaşadım. Lütfen tekrar deneyin."
	BookingEnrichFailure  = "Üzgünüm, bilgilerinizi işlerken bir sorun yaşadım. Lütfen tekrar deneyin."
	BookingCompleteFormat = "Rezervasyon bilgileriniz hazır! Aşağıdaki bağlantıdan güvenle işlemi tamamlayabilirsiniz:\n%s"
	BookingCancelled      = "Rezervasyon işlemini iptal ettim. Başka bir konuda yardımcı olabilir miyim?"

	KnowledgeApology      = "Üzgünüm, şu anda bu soruyu yanıtlayamıyorum. Lütfen daha sonra tekrar deneyin veya müşteri hizmetlerimizle iletişime geçin."
	InsufficientKnowledge = "Bu konuda elimde yeterli bilgi bulunmuyor. Detaylı bilgi için resepsiyonumuzla iletişime geçebilirsiniz."

	RedirectFormat  = "İlgili işlemi aşağıdaki bağlantıdan yapabilirsiniz:\n%s"
	RedirectMissing = "Üzgünüm, bu işlem için uygun bir bağlantı bulunamadı. Lütfen müşteri hizmetlerimizle iletişime geçin."
)

// SmallTalkFallbacks are served in order when the generator is unavailable.
var SmallTalkFallbacks = []string{
	"Teşekkür ederim! Size nasıl yardımcı olabilirim?",
	"Merhaba! Cullinan Hotel hakkında merak ettiğiniz bir şey var mı?",
	"Rica ederim, başka bir konuda yardımcı olabilirsem sevinirim.",
}

var slotQuestions = map[string]string{
	"check_in_date":  "Hangi tarihte giriş yapmak istersiniz? (örnek: 15 Ocak 2025)",
	"check_out_date": "Hangi tarihte çıkış yapmayı planlıyorsunuz?",
	"room_count":     "Kaç oda ayırtmak istersiniz?",
	"adult_count":    "Kaç yetişkin konaklayacak?",
	"child_count":    "Yanınızda çocuk olacak mı? Varsa kaç çocuk?",
	"child_ages":     "Çocukların yaşlarını virgülle ayırarak yazabilir misiniz? (örnek: 8, 5)",
}

// SlotQuestion returns the local question asked when the model gave no
// visible text.
func SlotQuestion(slot string) string {
	if q, ok := slotQuestions[slot]; ok {
		return q
	}
	return "Rezervasyonunuz için biraz daha bilgiye ihtiyacım var. Devam edebilir miyiz?"
}

func BookingComplete(url string) string {
	return fmt.Sprintf(BookingCompleteFormat, url)
}

func Redirect(url string) string {
	return fmt.Sprintf(RedirectFormat, url)
}

// BuildBookingStatePrompt renders the collected fields and the ones still
// needed as a second system message.
func BuildBookingStatePrompt(stateJSON string, missing []string) string {
	m := "yok"
	if len(missing) > 0 {
		m = strings.Join(missing, ", ")
	}
	return fmt.Sprintf(bookingStateTemplate, stateJSON, m)
}

// BuildKnowledgeContext joins retrieved chunks in relevance order.
func BuildKnowledgeContext(chunks []string) string {
	var builder strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			builder.WriteString("\n---\n")
		}
		builder.WriteString(strings.TrimSpace(chunk))
	}
	return fmt.Sprintf(knowledgeContextTemplate, builder.String())
}
