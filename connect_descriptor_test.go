package oracle

import "testing"

func TestDescriptionBuildServiceName(t *testing.T) {
	d := &Description{
		Addresses:   []Address{{Protocol: "tcp", Host: "db.example.com", Port: 1521}},
		ServiceName: "orcl.example.com",
	}
	got, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "(DESCRIPTION=(ADDRESS=(PROTOCOL=tcp)(HOST=db.example.com)(PORT=1521))(CONNECT_DATA=(SERVICE_NAME=orcl.example.com)))"
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestDescriptionBuildRequiresAddress(t *testing.T) {
	d := &Description{ServiceName: "orcl"}
	if _, err := d.Build(); err == nil {
		t.Fatal("expected error with no addresses")
	}
}

func TestDescriptionBuildRequiresServiceOrSID(t *testing.T) {
	d := &Description{Addresses: []Address{{Host: "h", Port: 1521}}}
	if _, err := d.Build(); err == nil {
		t.Fatal("expected error with neither service name nor SID")
	}
}

func TestDescriptionUsesTLS(t *testing.T) {
	d := &Description{Addresses: []Address{{Protocol: "tcps", Host: "h", Port: 2484}}}
	if !d.UsesTLS() {
		t.Fatal("expected UsesTLS true for tcps address")
	}
	d2 := &Description{Addresses: []Address{{Protocol: "tcp", Host: "h", Port: 1521}}}
	if d2.UsesTLS() {
		t.Fatal("expected UsesTLS false for tcp address")
	}
}
