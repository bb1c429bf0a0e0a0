package assistant

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/report"
	"github.com/theirongolddev/finassist/internal/source"
)

const systemPreamble = `Sen bir bankanın kişisel finans asistanısın. Kullanıcının aylık gelir ve harcama geçmişi ile önümüzdeki aylar için harcama tahmini aşağıda CSV biçiminde verilmiştir.
Soruları bu verilere dayanarak, kullanıcının dilinde, kısa ve net yanıtla. Verilerde olmayan bir bilgiyi uydurma; emin değilsen bilmediğini söyle.`

// Greeting is the canned reply to the first message of a conversation.
const Greeting = "Merhaba! Ben finans asistanınız. Harcama geçmişiniz hakkında soru sorabilir, " +
	"gelecek harcamalarınız için tahmin isteyebilir ya da bir harcama alarmı kurabilirsiniz."

// AlarmConfirmation is the reply once a reminder is scheduled.
const AlarmConfirmation = "Alarm ayarlandı."

// NoData is the reply when no expense history could be loaded.
const NoData = "Harcama verilerinize şu anda ulaşılamıyor, lütfen daha sonra tekrar deneyin."

// SystemPrompt embeds the history table, the forecast table and the
// metrics report into the model's instructions. A nil result yields the
// preamble alone.
func SystemPrompt(res *pipeline.Result, currency string) (string, error) {
	var b strings.Builder
	b.WriteString(systemPreamble)
	if res == nil {
		return b.String(), nil
	}

	var hist bytes.Buffer
	if err := source.WriteHistory(&hist, res.History); err != nil {
		return "", fmt.Errorf("rendering history: %w", err)
	}
	b.WriteString("\n\nHarcama geçmişi (CSV):\n")
	b.Write(hist.Bytes())

	if res.Forecast != nil {
		var fc bytes.Buffer
		if err := source.WriteForecast(&fc, *res.Forecast); err != nil {
			return "", fmt.Errorf("rendering forecast: %w", err)
		}
		b.WriteString("\nHarcama tahmini (CSV):\n")
		b.Write(fc.Bytes())
		b.WriteString("\n")
		b.WriteString(report.Metrics(res.Metrics, currency))
	}
	return b.String(), nil
}
