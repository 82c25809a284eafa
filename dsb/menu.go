package dsb

import "fmt"

// Menu titles addressed while walking the result tree.
const (
	TitleContents = "Inhalte"
	TitlePlans    = "Pläne"
	TitleNews     = "News"
)

// NodeKind tells leaves (pages, news items) apart from groups.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeGroup
)

func (k NodeKind) String() string {
	if k == NodeGroup {
		return "group"
	}
	return "leaf"
}

// Node is a generic menu tree node. Groups carry children either directly in
// Childs or below Root.Childs; leaves carry a Detail URL.
type Node struct {
	Title  string `json:"Title"`
	ID     string `json:"Id"`
	Date   string `json:"Date"`
	Detail string `json:"Detail"`
	Root   *Node  `json:"Root,omitempty"`
	Childs []Node `json:"Childs,omitempty"`
}

// Kind reports whether the node has children.
func (n Node) Kind() NodeKind {
	if n.Root != nil || len(n.Childs) > 0 {
		return NodeGroup
	}
	return NodeLeaf
}

// Children returns Root.Childs when Root is set, else Childs.
func (n Node) Children() []Node {
	if n.Root != nil {
		return n.Root.Childs
	}
	return n.Childs
}

// FindByTitle returns the first node whose title matches exactly.
func FindByTitle(nodes []Node, title string) (*Node, error) {
	for i := range nodes {
		if nodes[i].Title == title {
			return &nodes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, title)
}

// section resolves Inhalte > title and returns the node holding Root.Childs.
func (r *Response) section(title string) (*Node, error) {
	contents, err := FindByTitle(r.ResultMenuItems, TitleContents)
	if err != nil {
		return nil, err
	}
	node, err := FindByTitle(contents.Childs, title)
	if err != nil {
		return nil, err
	}
	if node.Root == nil {
		return nil, fmt.Errorf("%w: %q has no Root", ErrNodeNotFound, title)
	}
	return node, nil
}

// TimeTables flattens Pläne > groups > pages into TimeTable records.
func (r *Response) TimeTables() ([]TimeTable, error) {
	plans, err := r.section(TitlePlans)
	if err != nil {
		return nil, err
	}
	tables := []TimeTable{}
	for _, group := range plans.Root.Childs {
		for _, page := range group.Children() {
			tables = append(tables, TimeTable{
				UUID:      group.ID,
				GroupName: group.Title,
				Date:      group.Date,
				Title:     page.Title,
				Detail:    page.Detail,
			})
		}
	}
	return tables, nil
}

// News flattens the News section. Leaves are items themselves; groups
// contribute their children and lend them their date when missing.
func (r *Response) News() ([]News, error) {
	section, err := r.section(TitleNews)
	if err != nil {
		return nil, err
	}
	items := []News{}
	for _, n := range section.Root.Childs {
		if n.Kind() == NodeLeaf {
			items = append(items, newsFrom(n, ""))
			continue
		}
		for _, c := range n.Children() {
			items = append(items, newsFrom(c, n.Date))
		}
	}
	return items, nil
}

func newsFrom(n Node, fallbackDate string) News {
	date := n.Date
	if date == "" {
		date = fallbackDate
	}
	return News{UUID: n.ID, Date: date, Title: n.Title, Detail: n.Detail}
}
