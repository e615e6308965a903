package geoserver

// Request body templates for the GeoServer REST configuration API. The
// backend accepts XML documents and answers with a bare status code.

const featureTypeTemplate = `<featureType>
  <name>%s</name>
  <nativeName>%s</nativeName>
  <title>%s</title>
  <nativeCRS>%s</nativeCRS>
  <srs>%s</srs>
  <enabled>true</enabled>
</featureType>`

const coverageStoreTemplate = `<coverageStore>
  <name>%s</name>
  <description>mapstack generated data store</description>
  <type>GeoTIFF</type>
  <enabled>true</enabled>
  <workspace>%s</workspace>
  <url>file:%s</url>
</coverageStore>`

const coverageTemplate = `<coverage>
  <name>%s</name>
  <title>%s</title>
  <namespace>
    <name>%s</name>
  </namespace>
  <nativeCoverageName>%s</nativeCoverageName>
  <description>mapstack generated layer</description>
  <nativeCRS>%s</nativeCRS>
  <srs>EPSG:%d</srs>
  <nativeBoundingBox>
    <minx>%f</minx>
    <maxx>%f</maxx>
    <miny>%f</miny>
    <maxy>%f</maxy>
    <crs>EPSG:%d</crs>
  </nativeBoundingBox>
  <store class="coverageStore">
    <name>%s:%s</name>
  </store>
  <requestSRS>
    <string>EPSG:%d</string>
  </requestSRS>
  <responseSRS>
    <string>EPSG:%d</string>
  </responseSRS>
  <enabled>true</enabled>
</coverage>`
