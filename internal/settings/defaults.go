package settings

import "github.com/jmehdipour/washcorner-notify/internal/model"

const (
	defaultPending = "Halo {customerName}! 👋\n\n" +
		"Kendaraan Anda dengan plat nomor *{licensePlate}* sudah terdaftar di antrian Wash Corner.\n\n" +
		"Layanan:\n{servicesList}\n\n" +
		"Kode tracking: *{trackingCode}*\n" +
		"Pantau status cucian: {trackingUrl}\n\n" +
		"Terima kasih telah memilih Wash Corner! 🚗"

	defaultInProgress = "🧽 *Sedang Dicuci*\n\n" +
		"Halo {customerName}, kendaraan *{licensePlate}* sedang dalam proses pengerjaan.\n\n" +
		"Layanan:\n{servicesList}\n\n" +
		"Kode tracking: *{trackingCode}*\n" +
		"Pantau status cucian: {trackingUrl}"

	defaultCompleted = "✅ *Cucian Selesai!*\n\n" +
		"Halo {customerName}, kendaraan *{licensePlate}* sudah selesai dan siap diambil.\n\n" +
		"Layanan:\n{servicesList}\n\n" +
		"Kode tracking: *{trackingCode}*\n" +
		"Detail: {trackingUrl}\n\n" +
		"Terima kasih dan sampai jumpa lagi di Wash Corner! 🙏"

	defaultCancelled = "❌ *Pesanan Dibatalkan*\n\n" +
		"Halo {customerName}, pesanan untuk kendaraan *{licensePlate}* telah dibatalkan.\n\n" +
		"Kode tracking: *{trackingCode}*\n" +
		"Silakan hubungi kami jika ada pertanyaan."
)

// Defaults returns the built-in settings used when nothing is persisted yet.
func Defaults() model.NotificationSettings {
	return model.NotificationSettings{
		DefaultPhone:   "",
		EnableWhatsapp: true,
		Templates:      DefaultTemplates(),
	}
}

func DefaultTemplates() model.Templates {
	return model.Templates{
		Pending:    defaultPending,
		InProgress: defaultInProgress,
		Completed:  defaultCompleted,
		Cancelled:  defaultCancelled,
	}
}
