package providers

import (
	"context"

	"github.com/saiset-co/sai-travel/safety"
	"github.com/saiset-co/sai-travel/types"
)

type mockAdvisory struct {
	level   int
	summary string
	details []types.SafetyDetail
}

var mockSafetyTable = map[string]mockAdvisory{
	"JP": {
		level:   0,
		summary: "日本は治安が良く、一般的に旅行者にとって非常に安全な国です。自然災害（地震・台風）には注意が必要です。",
		details: []types.SafetyDetail{
			{Category: "犯罪", Description: "犯罪率は非常に低い。スリや置き引きに軽微な注意は必要。", Severity: types.SeverityLow},
			{Category: "自然災害", Description: "地震・台風が多い。気象情報を確認すること。", Severity: types.SeverityMedium},
		},
	},
	"US": {
		level:   1,
		summary: "アメリカは大都市での犯罪に注意が必要です。地域によって安全性が大きく異なります。",
		details: []types.SafetyDetail{
			{Category: "犯罪", Description: "大都市の一部地区では犯罪が多い。夜間の一人歩きに注意。", Severity: types.SeverityMedium},
			{Category: "銃犯罪", Description: "銃所持が一般的。人が集まる場所でも事件が起こりうる。", Severity: types.SeverityMedium},
		},
	},
	"FR": {
		level:   1,
		summary: "フランスはテロの脅威が継続しています。観光地・公共交通機関での荷物管理に注意してください。",
		details: []types.SafetyDetail{
			{Category: "テロ", Description: "テロの脅威が継続。人の密集する場所では警戒を。", Severity: types.SeverityMedium},
			{Category: "スリ・置き引き", Description: "観光地でのスリ被害が多い。貴重品管理を徹底。", Severity: types.SeverityMedium},
		},
	},
	"TH": {
		level:   1,
		summary: "タイは観光地として人気ですが、麻薬規制が厳しく、政情が不安定な場合があります。",
		details: []types.SafetyDetail{
			{Category: "麻薬", Description: "薬物犯罪の刑罰が非常に厳しい。絶対に関わらないこと。", Severity: types.SeverityHigh},
			{Category: "詐欺", Description: "観光客を狙った詐欺が多い。格安ツアーなどに注意。", Severity: types.SeverityMedium},
		},
	},
	"UA": {
		level:   4,
		summary: "ウクライナはロシアとの武力紛争が継続しており、全土に退避勧告が発令されています。",
		details: []types.SafetyDetail{
			{Category: "武力紛争", Description: "全土で戦闘・爆撃が継続。即時退避を強く勧告。", Severity: types.SeverityHigh},
			{Category: "インフラ", Description: "電気・水道・通信が不安定。", Severity: types.SeverityHigh},
		},
	},
	"RU": {
		level:   3,
		summary: "ロシアへの渡航は中止を勧告しています。ウクライナ侵攻に関連するリスクがあります。",
		details: []types.SafetyDetail{
			{Category: "政治情勢", Description: "ウクライナ侵攻により、外国人の拘束リスクがある。", Severity: types.SeverityHigh},
			{Category: "制裁", Description: "国際制裁により、金融・交通手段が制限される可能性。", Severity: types.SeverityHigh},
		},
	},
}

// MockSafety returns the canned advisory for the handful of countries the
// table covers.
func MockSafety(code string) (types.SafetyInfo, bool) {
	m, ok := mockSafetyTable[code]
	if !ok {
		return types.SafetyInfo{}, false
	}

	details := make([]types.SafetyDetail, len(m.details))
	copy(details, m.details)

	return types.SafetyInfo{
		CountryCode: code,
		Level:       m.level,
		LevelLabel:  safety.Label(m.level),
		Summary:     m.summary,
		Details:     details,
		Source:      safety.SourcePrimary,
	}, true
}

type entryRow struct {
	visaRequired   bool
	visaOnArrival  bool
	visaFreeDays   int
	passportMonths int
	notes          string
}

var entryTable = map[string]entryRow{
	"JP": {visaFreeDays: 90, passportMonths: 6, notes: "日本国パスポートは多くの国でビザなし入国可能。"},
	"US": {visaRequired: true, passportMonths: 6, notes: "ESTA（電子渡航認証）が必要。事前にオンライン申請が必要です。"},
	"FR": {visaFreeDays: 90, passportMonths: 3, notes: "シェンゲン協定国。90日以内の滞在はビザ不要。"},
	"DE": {visaFreeDays: 90, passportMonths: 3, notes: "シェンゲン協定国。90日以内の滞在はビザ不要。"},
	"TH": {visaOnArrival: true, visaFreeDays: 30, passportMonths: 6, notes: "30日間はビザ不要。アライバルビザ（30日）も取得可能。"},
	"AU": {visaRequired: true, passportMonths: 6, notes: "ETA（電子渡航認証）が必要。オンラインで申請可能。"},
	"GB": {visaFreeDays: 180, passportMonths: 6, notes: "電子渡航認証（ETA）が2024年から必要になりました。"},
	"KR": {visaFreeDays: 90, passportMonths: 3, notes: "90日以内の観光はビザ不要。K-ETAの申請が必要な期間があります。"},
	"CN": {visaFreeDays: 30, passportMonths: 6, notes: "30日以内の滞在はビザ不要。滞在目的により要件が異なります。"},
	"SG": {visaFreeDays: 30, passportMonths: 6, notes: "30日以内の観光はビザ不要。SGアライバルカードを事前提出してください。"},
}

const defaultEntryNotes = "外務省または現地大使館に入国要件をご確認ください。"

// StaticEntry serves entry requirements for a Japanese passport holder
// from a built-in table.
type StaticEntry struct{}

func NewStaticEntry() *StaticEntry {
	return &StaticEntry{}
}

func (StaticEntry) GetEntryRequirement(code string) types.EntryRequirement {
	row, ok := entryTable[code]
	if !ok {
		months := 6
		return types.EntryRequirement{
			CountryCode:            code,
			VisaRequired:           true,
			PassportValidityMonths: &months,
			Notes:                  defaultEntryNotes,
		}
	}

	req := types.EntryRequirement{
		CountryCode:   code,
		VisaRequired:  row.visaRequired,
		VisaOnArrival: row.visaOnArrival,
		Notes:         row.notes,
	}
	if row.visaFreeDays > 0 {
		days := row.visaFreeDays
		req.VisaFreeDays = &days
	}
	if row.passportMonths > 0 {
		months := row.passportMonths
		req.PassportValidityMonths = &months
	}
	return req
}

// CannedNarrative is the last narrative candidate. It is always available.
type CannedNarrative struct{}

func NewCannedNarrative() *CannedNarrative {
	return &CannedNarrative{}
}

func (CannedNarrative) Name() string { return "canned" }

func (CannedNarrative) Available() bool { return true }

func (CannedNarrative) Generate(_ context.Context, _ string, name string) (types.Narrative, error) {
	return DefaultNarrative(name), nil
}

func DefaultNarrative(name string) types.Narrative {
	season := "現地の観光局にお問い合わせください。"
	return types.Narrative{
		Attractions: []types.NarrativeAttraction{
			{
				Name:        name + "の主要観光地",
				Description: name + "を代表する観光スポットです。",
				Category:    "文化",
				Highlights:  []string{"現地文化", "歴史的建造物", "地元料理"},
			},
		},
		BestSeason: &season,
		TravelTips: []string{
			"旅行前に現地の気候を確認してください。",
			"現地通貨を用意しておくと便利です。",
			"旅行保険への加入を強くお勧めします。",
		},
	}
}
