package dsb

// TimeTable is one page of a substitution plan. All pages of one logical day
// share the same UUID.
type TimeTable struct {
	UUID      string `json:"uuid"`
	GroupName string `json:"groupName"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
}

// News is one announcement published next to the plans.
type News struct {
	UUID   string `json:"uuid"`
	Date   string `json:"date"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Response is the decoded result document.
type Response struct {
	ResultCode       int    `json:"Resultcode"`
	ResultStatusInfo string `json:"ResultStatusInfo"`
	ResultMenuItems  []Node `json:"ResultMenuItems"`
}

type request struct {
	Req requestData `json:"req"`
}

type requestData struct {
	Data     string `json:"Data"`
	DataType int    `json:"DataType"`
}

type requestArgs struct {
	AppID      string `json:"AppId"`
	PushID     string `json:"PushId"`
	UserID     string `json:"UserId"`
	UserPw     string `json:"UserPw"`
	AppVersion string `json:"AppVersion"`
	Device     string `json:"Device"`
	OsVersion  string `json:"OsVersion"`
	Language   string `json:"Language"`
	Date       string `json:"Date"`
	LastUpdate string `json:"LastUpdate"`
	BundleID   string `json:"BundleId"`
}

type envelope struct {
	D *string `json:"d"`
}
