package providers

// mofaCodes maps ISO codes to the ministry's open-data file codes. Most are
// zero-padded dialling codes; US, CA and RU use the ministry's own codes.
var mofaCodes = map[string]string{
	"AE": "0971", "AF": "0093", "AL": "0355", "AM": "0374", "AO": "0244", "AR": "0054",
	"AT": "0043", "AU": "0061", "AZ": "0994", "BA": "0387", "BD": "0880", "BE": "0032",
	"BF": "0226", "BG": "0359", "BH": "0973", "BI": "0257", "BJ": "0229", "BO": "0591",
	"BR": "0055", "BT": "0975", "BY": "0375", "BZ": "0501", "CA": "9001", "CD": "0243",
	"CF": "0236", "CG": "0242", "CH": "0041", "CI": "0225", "CL": "0056", "CM": "0237",
	"CN": "0086", "CO": "0057", "CR": "0506", "CU": "0053", "CZ": "0420", "DE": "0049",
	"DJ": "0253", "DK": "0045", "DZ": "0213", "EC": "0593", "EE": "0372", "EG": "0020",
	"ER": "0291", "ES": "0034", "ET": "0251", "FI": "0358", "FJ": "0679", "FR": "0033",
	"GA": "0241", "GB": "0044", "GE": "0995", "GH": "0233", "GM": "0220", "GN": "0224",
	"GR": "0030", "GT": "0502", "GW": "0245", "GY": "0592", "HK": "0852", "HN": "0504",
	"HR": "0385", "HT": "0509", "HU": "0036", "ID": "0062", "IL": "0972", "IN": "0091",
	"IQ": "0964", "IR": "0098", "IT": "0039", "JO": "0962", "KE": "0254", "KG": "0996",
	"KH": "0855", "KR": "0082", "KW": "0965", "KZ": "0007", "LA": "0856", "LB": "0961",
	"LK": "0094", "LR": "0231", "LT": "0370", "LV": "0371", "LY": "0218", "MA": "0212",
	"MD": "0373", "MG": "0261", "MK": "0389", "ML": "0223", "MM": "0095", "MN": "0976",
	"MR": "0222", "MW": "0265", "MX": "0052", "MY": "0060", "MZ": "0258", "NA": "0264",
	"NE": "0227", "NG": "0234", "NI": "0505", "NL": "0031", "NO": "0047", "NP": "0977",
	"NZ": "0064", "OM": "0968", "PA": "0507", "PE": "0051", "PG": "0675", "PH": "0063",
	"PK": "0092", "PL": "0048", "PS": "0970", "PT": "0351", "PY": "0595", "QA": "0974",
	"RO": "0040", "RS": "0381", "RU": "9007", "RW": "0250", "SA": "0966", "SB": "0677",
	"SD": "0249", "SE": "0046", "SG": "0065", "SI": "0386", "SK": "0421", "SL": "0232",
	"SN": "0221", "SO": "0252", "SS": "0211", "SV": "0503", "SY": "0963", "TD": "0235",
	"TG": "0228", "TH": "0066", "TJ": "0992", "TL": "0670", "TM": "0993", "TN": "0216",
	"TR": "0090", "TW": "0886", "TZ": "0255", "UA": "0380", "UG": "0256", "US": "1000",
	"UY": "0598", "UZ": "0998", "VE": "0058", "VN": "0084", "XK": "0383", "YE": "0967",
	"ZA": "0027", "ZM": "0260", "ZW": "0263",
}
