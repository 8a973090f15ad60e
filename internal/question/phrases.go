package question

// phrases holds printer format strings; every %d is an amount.
type phrases struct {
	choose       string
	gainPrompt   string
	lossPrompt   string
	receiveNow   string
	payNow       string
	receiveIn1y  string
	payIn1y      string
	receiveIn12m string
	receiveIn24m string
	speedupSS    string // later, base
	speedupLL    string
	bonusLL      string // base, bonus
}

var phraseBook = map[string]phrases{
	"en": {
		choose:       "Which option would you choose?",
		gainPrompt:   "You can receive %d won. What would you like to do?",
		lossPrompt:   "You have to pay %d won. What would you like to do?",
		receiveNow:   "Receive %d won now",
		payNow:       "Pay %d won now",
		receiveIn1y:  "Receive %d won in 1 year",
		payIn1y:      "Pay %d won in 1 year",
		receiveIn12m: "Receive %d won in 12 months",
		receiveIn24m: "Receive %d won in 24 months",
		speedupSS:    "Bring the %d won due in 1 year forward and receive %d won now",
		speedupLL:    "Receive %d won in 1 year as scheduled",
		bonusLL:      "Receive %d won plus a %d won bonus in 1 year",
	},
	"ko": {
		choose:       "다음 중 어떤 옵션을 선택하시겠습니까?",
		gainPrompt:   "%d원을 받을 수 있습니다. 어떻게 하시겠습니까?",
		lossPrompt:   "%d원을 내야 하는 상황입니다. 어떻게 하시겠습니까?",
		receiveNow:   "지금 %d원 받기",
		payNow:       "지금 %d원 내기",
		receiveIn1y:  "1년 뒤 %d원 받기",
		payIn1y:      "1년 뒤 %d원 내기",
		receiveIn12m: "12개월 후 %d원 받기",
		receiveIn24m: "24개월 후 %d원 받기",
		speedupSS:    "1년 뒤 %d원을 앞당겨 지금 %d원 받기",
		speedupLL:    "원래대로 1년 뒤 %d원 받기",
		bonusLL:      "1년 뒤 %d원과 보너스 %d원 받기",
	},
}
