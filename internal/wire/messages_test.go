package wire

import (
	"reflect"
	"testing"
)

func TestInitRoundTrip(t *testing.T) {
	water := ColorRecord{Elevation: 0, R: 0, G: 0, B: 255, Alpha: 1}
	m := Init{
		IsAbsolute:  true,
		ShowWater:   true,
		WorkerIndex: 3,
		Relief:      true,
		Projection:  false,
		Scale:       0.5,
		WaterColor:  &water,
		Colors: []ColorRecord{
			{Elevation: 0, R: 10, G: 20, B: 30, Alpha: 1},
			{Elevation: 1000, R: 200, G: 150, B: 100, Alpha: 0.9},
		},
	}

	got, err := DecodeInit(m.Encode())
	if err != nil {
		t.Fatalf("DecodeInit: %v", err)
	}
	if got.IsAbsolute != m.IsAbsolute || got.ShowWater != m.ShowWater ||
		got.WorkerIndex != m.WorkerIndex || got.Relief != m.Relief ||
		got.Projection != m.Projection || got.Scale != m.Scale {
		t.Fatalf("scalar fields mismatch: got %+v want %+v", got, m)
	}
	if got.WaterColor == nil || *got.WaterColor != *m.WaterColor {
		t.Fatalf("WaterColor = %+v, want %+v", got.WaterColor, m.WaterColor)
	}
	if !reflect.DeepEqual(got.Colors, m.Colors) {
		t.Fatalf("Colors = %+v, want %+v", got.Colors, m.Colors)
	}
}

func TestInitNoWater(t *testing.T) {
	m := Init{Colors: []ColorRecord{{Elevation: 5, R: 1, G: 2, B: 3, Alpha: 1}}}
	got, err := DecodeInit(m.Encode())
	if err != nil {
		t.Fatalf("DecodeInit: %v", err)
	}
	if got.WaterColor != nil {
		t.Fatalf("WaterColor = %+v, want nil", got.WaterColor)
	}
	if !reflect.DeepEqual(got.Colors, m.Colors) {
		t.Fatalf("Colors = %+v, want %+v", got.Colors, m.Colors)
	}
}

func TestNodesRoundTrip(t *testing.T) {
	m := Nodes{Addresses: []string{"10.0.0.1:51778", "10.0.0.2:51778", ""}}
	got, err := DecodeNodes(m.Encode())
	if err != nil {
		t.Fatalf("DecodeNodes: %v", err)
	}
	if !reflect.DeepEqual(got.Addresses, m.Addresses) {
		t.Fatalf("Addresses = %v, want %v", got.Addresses, m.Addresses)
	}
}

func TestTiffRoundTripData(t *testing.T) {
	data := []byte("fake-tiff-bytes")
	m := Tiff{Contents: TiffData, Name: "N10E020.tif", FileSize: uint32(len(data)), JobID: 7, Data: data}
	got, err := DecodeTiff(m.Encode())
	if err != nil {
		t.Fatalf("DecodeTiff: %v", err)
	}
	if got.Contents != m.Contents || got.Name != m.Name || got.FileSize != m.FileSize || got.JobID != m.JobID {
		t.Fatalf("fields mismatch: got %+v want %+v", got, m)
	}
	if string(got.Data) != string(data) {
		t.Fatalf("Data = %q, want %q", got.Data, data)
	}
}

func TestTiffRoundTripURL(t *testing.T) {
	m := Tiff{Contents: TiffURL, Name: "http://example.com/tile.tif", JobID: 2}
	got, err := DecodeTiff(m.Encode())
	if err != nil {
		t.Fatalf("DecodeTiff: %v", err)
	}
	if got.Contents != TiffURL || got.Name != m.Name || len(got.Data) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestTiffRoundTripEmpty(t *testing.T) {
	m := Tiff{Contents: TiffEmpty}
	got, err := DecodeTiff(m.Encode())
	if err != nil {
		t.Fatalf("DecodeTiff: %v", err)
	}
	if got.Contents != TiffEmpty {
		t.Fatalf("Contents = %v, want TiffEmpty", got.Contents)
	}
}

func TestStatusChangeRoundTrip(t *testing.T) {
	m := StatusChange{
		Status: StatusLoaded, JobID: 42, SenderID: 1,
		Top: 11.5, Bottom: 10.5, Left: 20.25, Right: 21.25,
	}
	got, err := DecodeStatusChange(m.Encode())
	if err != nil {
		t.Fatalf("DecodeStatusChange: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestStatusChangeGlobalSentinel(t *testing.T) {
	m := StatusChange{Status: StatusRendering, JobID: GlobalJobID, SenderID: 3}
	got, err := DecodeStatusChange(m.Encode())
	if err != nil {
		t.Fatalf("DecodeStatusChange: %v", err)
	}
	if got.JobID != GlobalJobID {
		t.Fatalf("JobID = %d, want sentinel", got.JobID)
	}
}

func TestReqEdgeRoundTrip(t *testing.T) {
	m := ReqEdge{Quadrant: QuadrantNE, RequestingJobID: 1, RequestedJobID: 2}
	got, err := DecodeReqEdge(m.Encode())
	if err != nil {
		t.Fatalf("DecodeReqEdge: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestSendEdgeRoundTrip(t *testing.T) {
	cells := make([]int16, 300)
	for i := range cells {
		cells[i] = int16(i - 150)
	}
	m := SendEdge{Quadrant: QuadrantW, RequestingJobID: 5, RequestedJobID: 6, Cells: cells}
	got, err := DecodeSendEdge(m.Encode())
	if err != nil {
		t.Fatalf("DecodeSendEdge: %v", err)
	}
	if got.Quadrant != m.Quadrant || got.RequestingJobID != m.RequestingJobID || got.RequestedJobID != m.RequestedJobID {
		t.Fatalf("fields mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Cells, m.Cells) {
		t.Fatalf("Cells mismatch")
	}
}

func TestSendEdgeEmptyCells(t *testing.T) {
	m := SendEdge{Quadrant: QuadrantN, RequestingJobID: 1, RequestedJobID: 2}
	got, err := DecodeSendEdge(m.Encode())
	if err != nil {
		t.Fatalf("DecodeSendEdge: %v", err)
	}
	if len(got.Cells) != 0 {
		t.Fatalf("Cells = %v, want empty", got.Cells)
	}
}

func TestMinMaxRoundTrip(t *testing.T) {
	m := MinMax{Min: -413, Max: 8848}
	got, err := DecodeMinMax(m.Encode())
	if err != nil {
		t.Fatalf("DecodeMinMax: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestPngRoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	m := Png{
		JobID: 9, ImgHeight: 256, ImgWidth: 512,
		Top: 1, Bottom: 0, Left: 2, Right: 3, Data: data,
	}
	got, err := DecodePng(m.Encode())
	if err != nil {
		t.Fatalf("DecodePng: %v", err)
	}
	if got.JobID != m.JobID || got.ImgHeight != m.ImgHeight || got.ImgWidth != m.ImgWidth {
		t.Fatalf("fields mismatch: %+v", got)
	}
	if string(got.Data) != string(data) {
		t.Fatalf("Data mismatch: %v", got.Data)
	}
}

func TestUiUpdateRoundTrip(t *testing.T) {
	m := UiUpdate{Status: StatusComplete, JobID: 11}
	got, err := DecodeUiUpdate(m.Encode())
	if err != nil {
		t.Fatalf("DecodeUiUpdate: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestQuadrantOpposite(t *testing.T) {
	cases := map[Quadrant]Quadrant{
		QuadrantN: QuadrantS, QuadrantS: QuadrantN,
		QuadrantE: QuadrantW, QuadrantW: QuadrantE,
		QuadrantNE: QuadrantSW, QuadrantSW: QuadrantNE,
		QuadrantNW: QuadrantSE, QuadrantSE: QuadrantNW,
	}
	for q, want := range cases {
		if got := q.Opposite(); got != want {
			t.Errorf("%v.Opposite() = %v, want %v", q, got, want)
		}
	}
}
