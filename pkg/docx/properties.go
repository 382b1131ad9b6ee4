package docx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

const (
	customPropsPart        = "docProps/custom.xml"
	customPropsNamespace   = "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties"
	vtNamespace            = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
	customPropsContentType = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	customPropsRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties"
	customPropsFmtID       = "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}"
)

// CustomProperty 返回自定义文档属性的值
func (d *Document) CustomProperty(name string) (string, bool, error) {
	p, err := d.xmlPart(customPropsPart)
	if err != nil || p == nil {
		return "", false, err
	}
	prop := findProperty(p.xml.Root(), name)
	if prop == nil {
		return "", false, nil
	}
	if children := prop.ChildElements(); len(children) > 0 {
		return children[0].Text(), true, nil
	}
	return "", true, nil
}

// SetCustomProperty 写入字符串类型的自定义文档属性，
// 必要时创建 docProps/custom.xml 并登记内容类型和关系
func (d *Document) SetCustomProperty(name, value string) error {
	p, err := d.xmlPart(customPropsPart)
	if err != nil {
		return err
	}
	if p == nil {
		if p, err = d.createCustomProperties(); err != nil {
			return err
		}
	}

	root := p.xml.Root()
	if root == nil {
		return fmt.Errorf("%s 缺少根元素", customPropsPart)
	}

	prop := findProperty(root, name)
	if prop == nil {
		prop = root.CreateElement("property")
		prop.CreateAttr("fmtid", customPropsFmtID)
		prop.CreateAttr("pid", strconv.Itoa(nextPropertyID(root)))
		prop.CreateAttr("name", name)
	}
	for _, child := range prop.ChildElements() {
		prop.RemoveChild(child)
	}
	prop.CreateElement("vt:lpwstr").SetText(value)

	p.dirty = true
	return nil
}

func findProperty(root *etree.Element, name string) *etree.Element {
	if root == nil {
		return nil
	}
	for _, prop := range root.SelectElements("property") {
		if prop.SelectAttrValue("name", "") == name {
			return prop
		}
	}
	return nil
}

// nextPropertyID pid 从 2 开始
func nextPropertyID(root *etree.Element) int {
	next := 2
	for _, prop := range root.SelectElements("property") {
		if pid, err := strconv.Atoi(prop.SelectAttrValue("pid", "")); err == nil && pid >= next {
			next = pid + 1
		}
	}
	return next
}

func (d *Document) createCustomProperties() (*part, error) {
	types, err := d.xmlPart(contentTypesPart)
	if err != nil {
		return nil, err
	}
	if types == nil || types.xml.Root() == nil {
		return nil, fmt.Errorf("缺少 %s", contentTypesPart)
	}
	override := types.xml.Root().CreateElement("Override")
	override.CreateAttr("PartName", "/"+customPropsPart)
	override.CreateAttr("ContentType", customPropsContentType)
	types.dirty = true

	rels, err := d.xmlPart(packageRelsPart)
	if err != nil {
		return nil, err
	}
	if rels == nil || rels.xml.Root() == nil {
		return nil, fmt.Errorf("缺少 %s", packageRelsPart)
	}
	relsRoot := rels.xml.Root()
	rel := relsRoot.CreateElement("Relationship")
	rel.CreateAttr("Id", nextRelationshipID(relsRoot))
	rel.CreateAttr("Type", customPropsRelType)
	rel.CreateAttr("Target", customPropsPart)
	rels.dirty = true

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := x.CreateElement("Properties")
	root.CreateAttr("xmlns", customPropsNamespace)
	root.CreateAttr("xmlns:vt", vtNamespace)

	return d.addXMLPart(customPropsPart, x), nil
}

func nextRelationshipID(root *etree.Element) string {
	used := make(map[string]bool)
	for _, rel := range root.SelectElements("Relationship") {
		used[rel.SelectAttrValue("Id", "")] = true
	}
	for i := 1; ; i++ {
		id := "rId" + strconv.Itoa(i)
		if !used[id] {
			return id
		}
	}
}
