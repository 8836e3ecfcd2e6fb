package scene

import "testing"

func TestCollection_AddGetRemove(t *testing.T) {
	d := NewDocument()
	col := d.Collection(KindObjects)

	a, err := col.Add("Cube")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := col.Add("Cube"); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
	got, ok := col.Get("Cube")
	if !ok || got != a {
		t.Fatalf("get returned %v ok=%v", got, ok)
	}
	if !col.Remove("Cube") {
		t.Fatalf("remove reported missing")
	}
	if _, ok := col.Get("Cube"); ok {
		t.Fatalf("block still live after remove")
	}
	if col.Remove("Cube") {
		t.Fatalf("second remove should report missing")
	}
}

func TestRename_KeepsContentHash(t *testing.T) {
	d := NewDocument()
	col := d.Collection(KindObjects)
	a, err := col.Add("Cube")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	before := a.ContentHash()

	if err := col.Rename("Cube", "Box"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if a.Name() != "Box" {
		t.Fatalf("name = %q", a.Name())
	}
	if _, ok := col.Get("Cube"); ok {
		t.Fatalf("old name still resolves")
	}
	if a.ContentHash() != before {
		t.Fatalf("hash changed across rename")
	}
}

func TestRename_RejectsTakenName(t *testing.T) {
	d := NewDocument()
	col := d.Collection(KindObjects)
	mustAdd(t, col, "A")
	mustAdd(t, col, "B")
	if err := col.Rename("A", "B"); err == nil {
		t.Fatalf("expected error renaming onto taken name")
	}
}

func TestDuplicate_CopiesPropsFreshHash(t *testing.T) {
	d := NewDocument()
	col := d.Collection(KindObjects)
	a := mustAdd(t, col, "A")
	a.SetPropInt("id", 7)
	a.SetPropInt("target_id", 3)

	dup, err := col.Duplicate("A", "A.001")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.PropInt("id") != 7 || dup.PropInt("target_id") != 3 {
		t.Fatalf("props not copied: %v", dup.Props())
	}
	if dup.ContentHash() == a.ContentHash() {
		t.Fatalf("duplicate shares storage identity with original")
	}

	// Copies are independent afterwards.
	dup.SetPropInt("id", 0)
	if a.PropInt("id") != 7 {
		t.Fatalf("clearing the copy touched the original")
	}
}

func TestPropInt_ZeroMeansAbsent(t *testing.T) {
	d := NewDocument()
	a := mustAdd(t, d.Collection(KindObjects), "A")
	if a.PropInt("id") != 0 {
		t.Fatalf("absent prop should read 0")
	}
	a.SetPropInt("id", 5)
	a.SetPropInt("id", 0)
	if _, ok := a.Props()["id"]; ok {
		t.Fatalf("zeroed prop should not persist a key")
	}
}

func TestLinkedBlocks(t *testing.T) {
	d := NewDocument()
	lib := mustAdd(t, d.Collection(KindLibraries), "props.lib")
	col := d.Collection(KindObjects)
	b, err := col.AddLinked("Chair", lib)
	if err != nil {
		t.Fatalf("add linked: %v", err)
	}
	if b.Library() != lib {
		t.Fatalf("library not recorded")
	}
	if _, err := col.AddLinked("Table", nil); err == nil {
		t.Fatalf("expected error for nil library")
	}
}

func TestScenes(t *testing.T) {
	d := NewDocument()
	if len(d.Scenes()) != 1 {
		t.Fatalf("new document should have one scene, got %d", len(d.Scenes()))
	}
	if _, err := d.AddScene("Scene"); err == nil {
		t.Fatalf("expected duplicate scene error")
	}
	s2, err := d.AddScene("Cutscene")
	if err != nil {
		t.Fatalf("add scene: %v", err)
	}
	s2.SetPropInt("objects_id_counter", 4)
	if s2.PropInt("objects_id_counter") != 4 {
		t.Fatalf("scene prop lost")
	}
	if !d.RemoveScene("Scene") {
		t.Fatalf("remove scene failed")
	}
	if len(d.Scenes()) != 1 || d.Scenes()[0].Name() != "Cutscene" {
		t.Fatalf("unexpected scenes after remove")
	}
}

func TestLoadHandlers_IdempotentAndOrdered(t *testing.T) {
	d := NewDocument()
	var fired []string
	d.AddLoadHandler("a", func(*Document) { fired = append(fired, "a") })
	d.AddLoadHandler("b", func(*Document) { fired = append(fired, "b") })
	// Re-registering replaces, not appends.
	d.AddLoadHandler("a", func(*Document) { fired = append(fired, "a2") })

	d.EmitLoaded()
	if len(fired) != 2 || fired[0] != "b" || fired[1] != "a2" {
		t.Fatalf("fired = %v", fired)
	}

	d.RemoveLoadHandler("b")
	d.RemoveLoadHandler("b") // redundant removal is fine
	fired = nil
	d.EmitLoaded()
	if len(fired) != 1 || fired[0] != "a2" {
		t.Fatalf("fired = %v", fired)
	}
}

func TestReset_KeepsHandlers(t *testing.T) {
	d := NewDocument()
	mustAdd(t, d.Collection(KindObjects), "A")
	fired := 0
	d.AddLoadHandler("x", func(*Document) { fired++ })

	d.Reset()
	if d.Collection(KindObjects).Len() != 0 {
		t.Fatalf("collections survived reset")
	}
	if len(d.Scenes()) != 0 {
		t.Fatalf("scenes survived reset")
	}
	d.EmitLoaded()
	if fired != 1 {
		t.Fatalf("handler lost across reset")
	}
}

func mustAdd(t *testing.T, col *Collection, name string) *Block {
	t.Helper()
	b, err := col.Add(name)
	if err != nil {
		t.Fatalf("add %q: %v", name, err)
	}
	return b
}
