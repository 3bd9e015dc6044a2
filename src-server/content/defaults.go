package content

import "invitation/src-server/model"

// Editable fields of the guest page.
const (
	FieldHeroImage           = "heroImage"
	FieldEventTitle          = "eventTitle"
	FieldEventSubtitle       = "eventSubtitle"
	FieldEventDate           = "eventDate"
	FieldEventLocation       = "eventLocation"
	FieldGreetingContent     = "greetingContent"
	FieldGreetingSignature   = "greetingSignature"
	FieldEventDetailTime     = "eventDetailTime"
	FieldEventDetailLocation = "eventDetailLocation"
	FieldEventTarget         = "eventTarget"
	FieldEventFee            = "eventFee"
	FieldLocationAddress     = "locationAddress"
	FieldSubwayInfo          = "subwayInfo"
	FieldBusInfo             = "busInfo"
	FieldParkingInfo         = "parkingInfo"
	FieldContactPhone        = "contactPhone"
	FieldContactEmail        = "contactEmail"
	FieldDonationMessage     = "donationMessage"
	FieldBankName            = "bankName"
	FieldAccountNumber       = "accountNumber"
	FieldAccountHolder       = "accountHolder"
)

// Defaults is the built-in record every override is merged over.
func Defaults() model.ContentOverrides {
	return model.ContentOverrides{
		Fields: map[string]string{
			FieldHeroImage:           "/uploads/hero.jpg",
			FieldEventTitle:          "2025 신년 네트워킹 행사",
			FieldEventSubtitle:       "함께 새해를 시작해요",
			FieldEventDate:           "2025년 1월 18일 토요일 오후 6시",
			FieldEventLocation:       "서울 그랜드 호텔",
			FieldGreetingContent:     "새해 복 많이 받으세요.\n\n소중한 분들을 모시고 작은 자리를 마련했습니다.",
			FieldGreetingSignature:   "주최측 드림",
			FieldEventDetailTime:     "오후 6시 입장\n오후 6시 30분 시작",
			FieldEventDetailLocation: "서울 그랜드 호텔\n3층 그랜드볼룸",
			FieldEventTarget:         "초대받은 모든 분",
			FieldEventFee:            "무료",
			FieldLocationAddress:     "서울특별시 중구 세종대로 100\n서울 그랜드 호텔",
			FieldSubwayInfo:          "1호선 시청역 5번 출구 도보 3분",
			FieldBusInfo:             "시청 정류장 하차",
			FieldParkingInfo:         "호텔 지하 주차장 3시간 무료",
			FieldContactPhone:        "010-1234-5678",
			FieldContactEmail:        "contact@example.com",
			FieldDonationMessage:     "마음 전하실 곳",
			FieldBankName:            "국민은행",
			FieldAccountNumber:       "123456-78-901234",
			FieldAccountHolder:       "홍길동",
		},
		GalleryImages: []string{
			"/uploads/gallery-1.jpg",
			"/uploads/gallery-2.jpg",
			"/uploads/gallery-3.jpg",
		},
	}
}

// Merge lays overrides over defaults field by field. Empty strings and an
// empty gallery keep the default.
func Merge(defaults, overrides model.ContentOverrides) model.ContentOverrides {
	merged := model.NewContentOverrides()
	for k, v := range defaults.Fields {
		merged.Set(k, v)
	}
	for k, v := range overrides.Fields {
		if v != "" {
			merged.Set(k, v)
		}
	}
	merged.GalleryImages = append([]string(nil), defaults.GalleryImages...)
	if len(overrides.GalleryImages) > 0 {
		merged.GalleryImages = append([]string(nil), overrides.GalleryImages...)
	}
	return merged
}
