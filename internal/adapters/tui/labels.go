package tui

type labels struct {
	title       string
	intro       string
	participant string
	survey      string
	done        string
	unsaved     string
	spooled     string
	choiceHelp  string
	numberHelp  string
	selectHelp  string
	sliderHelp  string
	quitHelp    string
	busy        string
}

var labelBook = map[string]labels{
	"en": {
		title:       "Intertemporal choice study",
		intro:       "Each question offers an amount now or a different amount later. There are no right answers.",
		participant: "Participant ID",
		survey:      "A few questions about you",
		done:        "Thank you. Your responses have been saved.",
		unsaved:     "Thank you. Your responses could not be saved; please tell the experimenter.",
		spooled:     "A copy was kept and will be resubmitted.",
		choiceHelp:  "1/2 choose · ←/→ move · enter confirm",
		numberHelp:  "type a whole number · enter confirm",
		selectHelp:  "↑/↓ move · enter confirm",
		sliderHelp:  "←/→ adjust · enter confirm",
		quitHelp:    "q quit",
		busy:        "saving...",
	},
	"ko": {
		title:       "시점 간 선택 실험",
		intro:       "각 질문은 지금 받는 금액과 나중에 받는 금액 중 하나를 고르게 합니다. 정답은 없습니다.",
		participant: "참가자 ID",
		survey:      "응답자 정보",
		done:        "감사합니다. 응답이 저장되었습니다.",
		unsaved:     "감사합니다. 응답을 저장하지 못했습니다. 실험 진행자에게 알려 주세요.",
		spooled:     "사본이 보관되어 다시 제출됩니다.",
		choiceHelp:  "1/2 선택 · ←/→ 이동 · enter 확인",
		numberHelp:  "숫자 입력 · enter 확인",
		selectHelp:  "↑/↓ 이동 · enter 확인",
		sliderHelp:  "←/→ 조절 · enter 확인",
		quitHelp:    "q 종료",
		busy:        "저장 중...",
	},
}

func labelsFor(lang string) labels {
	if l, ok := labelBook[lang]; ok {
		return l
	}
	return labelBook["en"]
}
