package trial

import (
	"fmt"
	"time"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

func (m *Manager) expiredNotice() *domain.Notice {
	return &domain.Notice{
		Kind:     domain.NoticeTrialExpired,
		Blocking: true,
		Title:    "Deneme Süresi Doldu",
		Message: fmt.Sprintf("%d günlük deneme süreniz sona erdi. Programı kullanmaya devam etmek için lisans satın alın.",
			TrialDays),
		PurchaseURL: m.purchaseURL,
		Actions:     []domain.NoticeAction{domain.ActionPurchase, domain.ActionExit},
	}
}

func (m *Manager) warningNotice(remaining time.Duration) *domain.Notice {
	minutes := int(remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &domain.Notice{
		Kind:        domain.NoticeTrialWarning,
		Blocking:    false,
		Title:       "Deneme Süresi Bitiyor",
		Message:     fmt.Sprintf("Deneme sürenizin bitmesine yaklaşık %d dakika kaldı.", minutes),
		PurchaseURL: m.purchaseURL,
		Actions:     []domain.NoticeAction{domain.ActionPurchase, domain.ActionContinue},
	}
}
